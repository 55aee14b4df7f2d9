package jwt

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/vault/api"
	"github.com/ipede/authorization-server/internal/domain"
	"go.uber.org/zap"
)

// vaultStrategy implements SigningStrategy using HashiCorp Vault's transit
// engine. Key versions map to kids, so old versions remain verifiable after
// rotation without any extra bookkeeping here.
type vaultStrategy struct {
	client       *api.Client
	config       *domain.VaultConfig
	logger       *zap.Logger
	keyID        string
	lastRotation time.Time
	mu           sync.RWMutex
}

// NewVaultStrategy creates a new Vault strategy for JWT signing
func NewVaultStrategy(config *domain.VaultConfig, logger *zap.Logger) (domain.SigningStrategy, error) {
	if config == nil {
		return nil, domain.ErrInvalidKeyConfig
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, domain.ErrInvalidKeyConfig
	}
	client.SetToken(config.Token)

	strategy := &vaultStrategy{
		client:       client,
		config:       config,
		logger:       logger,
		lastRotation: time.Now(),
	}

	version, err := strategy.latestKeyVersion()
	if err != nil {
		return nil, domain.ErrInvalidKeyConfig
	}
	strategy.keyID = vaultKeyID(version)

	return strategy, nil
}

// Sign signs the claims using Vault's transit engine
func (v *vaultStrategy) Sign(claims jwt.Claims) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.client == nil {
		return "", domain.NewJWTError("sign token", domain.ErrInvalidKeyConfig)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = v.keyID

	unsignedToken, err := token.SigningString()
	if err != nil {
		v.logger.Error("failed to get signing string", zap.Error(err))
		return "", domain.NewJWTError("sign token", domain.ErrTokenGeneration)
	}

	hashed := sha256.Sum256([]byte(unsignedToken))

	path := fmt.Sprintf("%s/sign/%s", v.config.MountPath, v.config.KeyName)
	data := map[string]interface{}{
		"input":               base64.StdEncoding.EncodeToString(hashed[:]),
		"prehashed":           true,
		"hash_algorithm":      "sha2-256",
		"signature_algorithm": "pkcs1v15",
	}

	secret, err := v.client.Logical().Write(path, data)
	if err != nil {
		v.logger.Error("failed to sign token with vault", zap.Error(err))
		return "", domain.NewJWTError("sign token", domain.ErrTokenGeneration)
	}

	signature, ok := secret.Data["signature"].(string)
	if !ok {
		v.logger.Error("invalid signature from vault")
		return "", domain.NewJWTError("sign token", domain.ErrInvalidSignature)
	}

	// Strip the vault version prefix (e.g. "vault:v1:")
	if strings.HasPrefix(signature, "vault:v") {
		parts := strings.SplitN(signature, ":", 3)
		if len(parts) == 3 {
			signature = parts[2]
		}
	}

	decodedSignature, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		v.logger.Error("failed to decode signature", zap.Error(err))
		return "", domain.NewJWTError("sign token", domain.ErrInvalidSignature)
	}

	// Verify before handing the token out
	publicKey := v.GetPublicKey()
	if publicKey == nil {
		return "", domain.NewJWTError("sign token", domain.ErrInvalidSignature)
	}
	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, hashed[:], decodedSignature); err != nil {
		v.logger.Error("invalid RSA signature", zap.Error(err))
		return "", domain.NewJWTError("sign token", domain.ErrInvalidSignature)
	}

	encodedSignature := base64.RawURLEncoding.EncodeToString(decodedSignature)
	return fmt.Sprintf("%s.%s", unsignedToken, encodedSignature), nil
}

// GetPublicKey returns the public key for the latest key version
func (v *vaultStrategy) GetPublicKey() *rsa.PublicKey {
	keys := v.PublicKeys()
	v.mu.RLock()
	defer v.mu.RUnlock()
	return keys[v.keyID]
}

// GetKeyID returns the current key ID
func (v *vaultStrategy) GetKeyID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keyID
}

// PublicKeys returns every key version Vault still serves, keyed by kid
func (v *vaultStrategy) PublicKeys() map[string]*rsa.PublicKey {
	if v.client == nil {
		return nil
	}

	path := fmt.Sprintf("%s/keys/%s", v.config.MountPath, v.config.KeyName)
	secret, err := v.client.Logical().Read(path)
	if err != nil || secret == nil {
		v.logger.Error("failed to read key versions from vault", zap.Error(err))
		return nil
	}

	keyData, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		v.logger.Error("invalid key data from vault")
		return nil
	}

	keys := make(map[string]*rsa.PublicKey, len(keyData))
	for versionStr, raw := range keyData {
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			continue
		}
		keyInfo, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		publicKeyPEM, ok := keyInfo["public_key"].(string)
		if !ok {
			continue
		}
		publicKey, err := parsePEMPublicKey(publicKeyPEM)
		if err != nil {
			v.logger.Error("failed to parse vault public key",
				zap.Int("version", version),
				zap.Error(err))
			continue
		}
		keys[vaultKeyID(version)] = publicKey
	}
	return keys
}

// RotateKey rotates the key in Vault and advances the kid
func (v *vaultStrategy) RotateKey() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.client == nil {
		return domain.NewJWTError("rotate key", domain.ErrInvalidKeyConfig)
	}

	rotatePath := fmt.Sprintf("%s/keys/%s/rotate", v.config.MountPath, v.config.KeyName)
	if _, err := v.client.Logical().Write(rotatePath, nil); err != nil {
		v.logger.Error("failed to rotate key in vault", zap.Error(err))
		return domain.NewJWTError("rotate key", domain.ErrInvalidKeyConfig)
	}

	version, err := v.latestKeyVersion()
	if err != nil {
		return domain.NewJWTError("rotate key", domain.ErrInvalidKeyConfig)
	}

	v.keyID = vaultKeyID(version)
	v.lastRotation = time.Now()

	v.logger.Info("Rotated signing key in vault", zap.String("key_id", v.keyID))
	return nil
}

// GetLastRotation returns the last key rotation time
func (v *vaultStrategy) GetLastRotation() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastRotation
}

// latestKeyVersion reads the highest key version from the transit engine
func (v *vaultStrategy) latestKeyVersion() (int, error) {
	path := fmt.Sprintf("%s/keys/%s", v.config.MountPath, v.config.KeyName)
	secret, err := v.client.Logical().Read(path)
	if err != nil || secret == nil {
		return 0, domain.ErrInvalidKeyConfig
	}

	keys, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return 0, domain.ErrInvalidKeyConfig
	}

	var latest int
	for versionStr := range keys {
		version, err := strconv.Atoi(versionStr)
		if err == nil && version > latest {
			latest = version
		}
	}
	if latest == 0 {
		return 0, domain.ErrInvalidKeyConfig
	}
	return latest, nil
}

func vaultKeyID(version int) string {
	return fmt.Sprintf("vault-%d", version)
}

func parsePEMPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, domain.ErrInvalidKeyConfig
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, domain.ErrInvalidKeyConfig
	}
	return rsaPublicKey, nil
}
