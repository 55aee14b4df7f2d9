package application

import (
	"context"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"go.uber.org/zap"
)

// Sweeper periodically removes expired authorization codes, pending
// authorization requests and refresh tokens. Expiry checks at read time make
// correctness independent of the sweep; this only bounds table growth.
type Sweeper struct {
	codeRepo    domain.AuthorizationCodeRepository
	requestRepo domain.AuthorizationRequestRepository
	tokenRepo   domain.TokenRepository
	interval    time.Duration
	logger      *zap.Logger
}

func NewSweeper(
	codeRepo domain.AuthorizationCodeRepository,
	requestRepo domain.AuthorizationRequestRepository,
	tokenRepo domain.TokenRepository,
	interval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		codeRepo:    codeRepo,
		requestRepo: requestRepo,
		tokenRepo:   tokenRepo,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass over the three expiring tables
func (s *Sweeper) Sweep(ctx context.Context) {
	codes, err := s.codeRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired authorization codes", zap.Error(err))
	}
	requests, err := s.requestRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired authorization requests", zap.Error(err))
	}
	tokens, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired refresh tokens", zap.Error(err))
	}

	if codes+requests+tokens > 0 {
		s.logger.Debug("swept expired records",
			zap.Int64("codes", codes),
			zap.Int64("requests", requests),
			zap.Int64("tokens", tokens))
	}
}
