package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CancellationService interface {
	Cancel(ctx context.Context, reservationID, requesterID uuid.UUID) error
}

type cancellationService struct {
	db   database.PgxIface
	repo *repository.Repository
	log  *zap.Logger
}

func NewCancellationService(db database.PgxIface, repo *repository.Repository, log *zap.Logger) CancellationService {
	return &cancellationService{
		db:   db,
		repo: repo,
		log:  log.With(zap.String("service", "cancellation")),
	}
}

// Cancel reverses a paid reservation before the showtime starts, returning
// its seats to inventory.
func (s *cancellationService) Cancel(ctx context.Context, reservationID, requesterID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	reservation, err := s.repo.Reservation.FindByIDTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if reservation == nil {
		return ErrReservationNotFound
	}

	showtime, err := s.repo.Showtime.LockTx(ctx, tx, reservation.ShowtimeID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if showtime == nil {
		return fmt.Errorf("cancel: showtime %s of reservation %s missing", reservation.ShowtimeID.String(), reservationID.String())
	}

	// Re-read under the aggregate lock
	reservation, err = s.repo.Reservation.FindByIDTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if reservation == nil {
		return ErrReservationNotFound
	}

	if reservation.BuyerID != requesterID {
		return ErrNotOwner
	}
	if reservation.Status != entity.ReservationStatusPaid {
		return ErrNotPaid
	}
	if showtime.Started(time.Now()) {
		return ErrEventAlreadyStarted
	}

	seatRefs, err := s.repo.Reservation.FindSeatRefsTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	seatIDs := make([]uuid.UUID, len(seatRefs))
	for i, ref := range seatRefs {
		seatIDs[i] = ref.SeatID
	}

	seats, err := s.repo.Showtime.FindSeatsByIDTx(ctx, tx, reservation.ShowtimeID, seatIDs)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	// Only seats still booked under this reservation go back to inventory.
	// Anything else is a data anomaly: leave it alone, make noise.
	releasable := make([]uuid.UUID, 0, len(seats))
	for _, seat := range seats {
		if seat.Status != entity.SeatStatusBooked {
			s.log.Warn("Seat not in booked state during cancellation, skipping",
				zap.String("reservation_id", reservationID.String()),
				zap.String("seat_label", seat.Label),
				zap.String("status", string(seat.Status)),
			)
			continue
		}
		releasable = append(releasable, seat.ID)
	}

	if err := s.repo.Showtime.ReleaseSeatsTx(ctx, tx, releasable); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	if err := s.repo.Reservation.MarkCancelledTx(ctx, tx, reservationID); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancel: %w", err)
	}

	s.log.Info("Reservation cancelled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("order_id", reservation.OrderID),
		zap.String("buyer_id", requesterID.String()),
		zap.Int("seats_released", len(releasable)),
	)

	return nil
}
