package analytics

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

// Store keeps consumed events and the per-day rollup.
type Store interface {
	SaveEvent(ctx context.Context, ev domain.Event, payload []byte) error
	UpdateDailyMetrics(ctx context.Context, duration time.Duration) error
}

// Invalidator drops cached read models that a finished game makes stale.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store  Store
	cache  Invalidator
	logger *log.Logger
}

// NewService builds the event handler. cache may be nil.
func NewService(store Store, cache Invalidator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{store: store, cache: cache, logger: logger.WithPrefix("analytics")}
}

// Handle stores ev and, for finished games, folds it into the daily metrics.
func (s *Service) Handle(ctx context.Context, ev domain.Event, payload []byte) error {
	if err := s.store.SaveEvent(ctx, ev, payload); err != nil {
		return err
	}

	switch e := ev.(type) {
	case domain.PlayerJoined:
		s.logger.Debug("player joined", "game", e.GameID, "player", e.Username)
	case domain.MoveMade:
		s.logger.Debug("move made", "game", e.GameID, "player", e.Player, "column", e.Column)
	case domain.GameEnded:
		s.logger.Info("game ended", "game", e.GameID, "winner", e.Username, "draw", e.Draw, "duration", e.Duration)
		if err := s.store.UpdateDailyMetrics(ctx, e.Duration); err != nil {
			return err
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx); err != nil {
				s.logger.Warn("cache invalidation failed", "err", err)
			}
		}
	}
	return nil
}
