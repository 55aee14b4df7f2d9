package jwt

import (
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/ipede/authorization-server/internal/domain"
	"github.com/ipede/authorization-server/internal/infrastructure/config"
	"go.uber.org/zap"
)

// compositeStrategy implements SigningStrategy with fallback support:
// Vault when reachable, the local key pair otherwise.
type compositeStrategy struct {
	vaultStrategy domain.SigningStrategy
	localStrategy domain.SigningStrategy
	logger        *zap.Logger
	useVault      bool
	mu            sync.RWMutex
}

// NewCompositeStrategy builds the signing strategy from configuration: a
// Vault transit strategy when a token is configured, with a local key pair
// as fallback. The local strategy is mandatory.
func NewCompositeStrategy(cfg *config.Config, logger *zap.Logger) (domain.SigningStrategy, error) {
	localStrategy, err := NewLocalStrategy(cfg.LocalConfig(), logger)
	if err != nil {
		return nil, err
	}

	var vaultStrategy domain.SigningStrategy
	if cfg.VaultToken != "" {
		vaultStrategy, err = NewVaultStrategy(cfg.VaultConfig(), logger)
		if err != nil {
			logger.Warn("Failed to create Vault strategy, using local strategy only", zap.Error(err))
			vaultStrategy = nil
		}
	}

	return &compositeStrategy{
		vaultStrategy: vaultStrategy,
		localStrategy: localStrategy,
		logger:        logger,
		useVault:      vaultStrategy != nil,
	}, nil
}

// Sign signs the claims using the current strategy with fallback
func (c *compositeStrategy) Sign(claims gojwt.Claims) (string, error) {
	if c.vaultActive() {
		token, err := c.vaultStrategy.Sign(claims)
		if err == nil {
			return token, nil
		}
		c.demoteVault(err)
	}
	return c.localStrategy.Sign(claims)
}

// GetPublicKey returns the public key from the current strategy
func (c *compositeStrategy) GetPublicKey() *rsa.PublicKey {
	if c.vaultActive() {
		if publicKey := c.vaultStrategy.GetPublicKey(); publicKey != nil {
			return publicKey
		}
		c.demoteVault(nil)
	}
	return c.localStrategy.GetPublicKey()
}

// GetKeyID returns the current key ID
func (c *compositeStrategy) GetKeyID() string {
	if c.vaultActive() {
		return c.vaultStrategy.GetKeyID()
	}
	return c.localStrategy.GetKeyID()
}

// PublicKeys merges the verification keys of both strategies so tokens
// signed before a fallback still verify
func (c *compositeStrategy) PublicKeys() map[string]*rsa.PublicKey {
	keys := make(map[string]*rsa.PublicKey)
	for kid, key := range c.localStrategy.PublicKeys() {
		keys[kid] = key
	}
	if c.vaultStrategy != nil {
		for kid, key := range c.vaultStrategy.PublicKeys() {
			keys[kid] = key
		}
	}
	return keys
}

// RotateKey rotates the key in the current strategy
func (c *compositeStrategy) RotateKey() error {
	if c.vaultActive() {
		err := c.vaultStrategy.RotateKey()
		if err == nil {
			return nil
		}
		c.demoteVault(err)
	}
	return c.localStrategy.RotateKey()
}

// GetLastRotation returns the last key rotation time
func (c *compositeStrategy) GetLastRotation() time.Time {
	if c.vaultActive() {
		return c.vaultStrategy.GetLastRotation()
	}
	return c.localStrategy.GetLastRotation()
}

// TryVault attempts to switch back to the Vault strategy
func (c *compositeStrategy) TryVault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vaultStrategy == nil {
		return fmt.Errorf("vault is not available")
	}
	if c.vaultStrategy.GetPublicKey() == nil {
		return fmt.Errorf("vault is not available")
	}
	c.useVault = true
	c.logger.Info("Successfully switched back to Vault strategy")
	return nil
}

func (c *compositeStrategy) vaultActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.useVault && c.vaultStrategy != nil
}

func (c *compositeStrategy) demoteVault(err error) {
	c.logger.Warn("Vault strategy unavailable, falling back to local strategy", zap.Error(err))
	c.mu.Lock()
	c.useVault = false
	c.mu.Unlock()
}
