package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipede/authorization-server/internal/domain"
	"go.uber.org/zap"
)

// localStrategy implements SigningStrategy using a local RSA key pair. The
// previous public key is retained after rotation so tokens signed with the
// old kid keep verifying until they expire.
type localStrategy struct {
	privateKey   *rsa.PrivateKey
	publicKey    *rsa.PublicKey
	previousKeys map[string]*rsa.PublicKey
	config       *domain.LocalConfig
	logger       *zap.Logger
	keyID        string
	lastRotation time.Time
	mu           sync.RWMutex
}

// NewLocalStrategy creates a new local strategy for JWT signing
func NewLocalStrategy(config *domain.LocalConfig, logger *zap.Logger) (domain.SigningStrategy, error) {
	if config == nil {
		return nil, domain.ErrInvalidKeyConfig
	}

	strategy := &localStrategy{
		config:       config,
		logger:       logger,
		previousKeys: make(map[string]*rsa.PublicKey),
		lastRotation: time.Now(),
	}

	if err := strategy.loadOrGenerateKeyPair(); err != nil {
		return nil, domain.ErrInvalidKeyConfig
	}

	strategy.keyID = generateKeyID(strategy.privateKey)

	return strategy, nil
}

// Sign signs the claims with the local private key
func (l *localStrategy) Sign(claims jwt.Claims) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.privateKey == nil {
		return "", domain.NewJWTError("sign token", domain.ErrInvalidKeyConfig)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = l.keyID

	signed, err := token.SignedString(l.privateKey)
	if err != nil {
		l.logger.Error("failed to sign token", zap.Error(err))
		return "", domain.NewJWTError("sign token", domain.ErrTokenGeneration)
	}
	return signed, nil
}

// GetPublicKey returns the active public key
func (l *localStrategy) GetPublicKey() *rsa.PublicKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.publicKey
}

// GetKeyID returns the active key ID
func (l *localStrategy) GetKeyID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keyID
}

// PublicKeys returns the active and retained previous public keys by kid
func (l *localStrategy) PublicKeys() map[string]*rsa.PublicKey {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make(map[string]*rsa.PublicKey, len(l.previousKeys)+1)
	for kid, key := range l.previousKeys {
		keys[kid] = key
	}
	if l.publicKey != nil {
		keys[l.keyID] = l.publicKey
	}
	return keys
}

// RotateKey generates a new key pair, retaining the old public key
func (l *localStrategy) RotateKey() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.publicKey != nil {
		l.previousKeys[l.keyID] = l.publicKey
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, domain.RSAKeySize)
	if err != nil {
		l.logger.Error("failed to generate RSA key", zap.Error(err))
		return domain.NewJWTError("rotate key", domain.ErrInvalidKeyConfig)
	}

	if err := l.writeKeyPair(privateKey); err != nil {
		return domain.NewJWTError("rotate key", err)
	}

	l.privateKey = privateKey
	l.publicKey = &privateKey.PublicKey
	l.keyID = generateKeyID(privateKey)
	l.lastRotation = time.Now()

	l.logger.Info("Rotated signing key",
		zap.String("key_id", l.keyID),
		zap.Int("retained_keys", len(l.previousKeys)))

	return nil
}

// GetLastRotation returns the last key rotation time
func (l *localStrategy) GetLastRotation() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastRotation
}

// loadOrGenerateKeyPair loads the key pair from file or generates a new one
func (l *localStrategy) loadOrGenerateKeyPair() error {
	dir := filepath.Dir(l.config.KeyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return domain.ErrInvalidKeyConfig
	}

	if err := l.loadKeyPair(); err == nil {
		return nil
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, domain.RSAKeySize)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	if err := l.writeKeyPair(privateKey); err != nil {
		return err
	}

	l.privateKey = privateKey
	l.publicKey = &privateKey.PublicKey
	return nil
}

// loadKeyPair loads the key pair from file
func (l *localStrategy) loadKeyPair() error {
	privateKeyPEM, err := os.ReadFile(l.config.KeyPath)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return domain.ErrInvalidKeyConfig
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return domain.ErrInvalidKeyConfig
	}

	l.privateKey = privateKey
	l.publicKey = &privateKey.PublicKey
	return nil
}

// writeKeyPair persists the private key as PEM
func (l *localStrategy) writeKeyPair(privateKey *rsa.PrivateKey) error {
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	if err := os.WriteFile(l.config.KeyPath, privateKeyPEM, 0600); err != nil {
		return domain.ErrInvalidKeyConfig
	}
	return nil
}

// generateKeyID derives a stable key ID from the public key material
func generateKeyID(key *rsa.PrivateKey) string {
	modulus := key.N.Bytes()
	exponent := []byte{byte(key.E)}

	data := append(modulus, exponent...)
	hash := sha256.Sum256(data)

	return base64.RawURLEncoding.EncodeToString(hash[:8])
}
