package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cinema-reservation/internal/data/repository"
	"cinema-reservation/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweeperService reclaims lapsed holds on a fixed interval. It is an explicit
// lifecycle object: bootstrap starts it once, shutdown stops it, and tests
// call SweepOnce directly.
type SweeperService struct {
	db       database.PgxIface
	repo     *repository.Repository
	interval time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewSweeperService(db database.PgxIface, repo *repository.Repository, interval time.Duration, log *zap.Logger) *SweeperService {
	return &SweeperService{
		db:       db,
		repo:     repo,
		interval: interval,
		log:      log.With(zap.String("service", "sweeper")),
	}
}

// Start launches the background loop. Calling Start on a running sweeper is
// a no-op.
func (s *SweeperService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx, s.stop, s.done)

	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for the in-flight sweep, if any, to finish.
func (s *SweeperService) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	s.log.Info("Sweeper stopped")
}

func (s *SweeperService) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.log.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce runs the two cleanup passes. Seat reclaim happens per showtime in
// its own transaction so one broken showtime never blocks the rest; lapsed
// pending reservations are cancelled in a second, independent pass. A crash
// between the passes is harmless: a stale pending reservation can never be
// paid, since Finalize re-validates seat state, and the next tick cancels it.
func (s *SweeperService) SweepOnce(ctx context.Context) error {
	now := time.Now()

	showtimeIDs, err := s.repo.Showtime.FindShowtimesWithLapsedHolds(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	for _, showtimeID := range showtimeIDs {
		if err := s.reclaimShowtime(ctx, showtimeID, now); err != nil {
			// Per-showtime failure domain; next tick retries.
			s.log.Error("Failed to reclaim showtime holds",
				zap.Error(err),
				zap.String("showtime_id", showtimeID.String()),
			)
		}
	}

	cancelled, err := s.repo.Reservation.CancelLapsed(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	if len(showtimeIDs) > 0 || cancelled > 0 {
		s.log.Info("Sweep completed",
			zap.Int("showtimes", len(showtimeIDs)),
			zap.Int64("reservations_cancelled", cancelled),
		)
	}

	return nil
}

func (s *SweeperService) reclaimShowtime(ctx context.Context, showtimeID uuid.UUID, now time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reclaim: %w", err)
	}
	defer tx.Rollback(ctx)

	showtime, err := s.repo.Showtime.LockTx(ctx, tx, showtimeID)
	if err != nil {
		return err
	}
	if showtime == nil {
		return nil
	}

	reclaimed, err := s.repo.Showtime.ReclaimLapsedTx(ctx, tx, showtimeID, now)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reclaim: %w", err)
	}

	if reclaimed > 0 {
		s.log.Info("Lapsed holds reclaimed",
			zap.String("showtime_id", showtimeID.String()),
			zap.Int64("seats", reclaimed),
		)
	}

	return nil
}
