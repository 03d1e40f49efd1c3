package trips

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

// Sweeper periodically completes trips whose departure plus Grace has passed.
type Sweeper struct {
	Manager   *Manager
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
	Logger    *slog.Logger
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	s.Logger.Info("trip sweeper started", "interval", s.Interval, "grace", s.Grace)
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("trip sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.Logger.Error("trip sweep failed", "err", err)
			}
		}
	}
}

// Sweep completes one batch of due trips and returns how many it closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	due, err := s.Manager.Store.ListDue(ctx, s.Manager.now().Add(-s.Grace), limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, t := range due {
		_, err := s.Manager.Complete(ctx, t.ID)
		switch {
		case err == nil:
			done++
		case errors.Is(err, models.ErrTripTerminal):
			// cancelled between list and update
		default:
			s.Logger.Warn("failed to complete trip", "trip_id", t.ID, "err", err)
		}
	}
	return done, nil
}
