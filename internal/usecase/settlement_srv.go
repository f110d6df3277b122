package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/queue"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaidNotifier receives the post-commit notification of a settled sale.
// Delivery is best-effort: a failure is logged and never rolls the sale back.
type PaidNotifier interface {
	ReservationPaid(ctx context.Context, event queue.ReservationPaidEvent) error
}

type SettlementService interface {
	Finalize(ctx context.Context, paymentRef string, reservationID uuid.UUID) error
}

type settlementService struct {
	db       database.PgxIface
	repo     *repository.Repository
	config   *utils.Config
	notifier PaidNotifier
	log      *zap.Logger
}

func NewSettlementService(db database.PgxIface, repo *repository.Repository, config *utils.Config, notifier PaidNotifier, log *zap.Logger) SettlementService {
	return &settlementService{
		db:       db,
		repo:     repo,
		config:   config,
		notifier: notifier,
		log:      log.With(zap.String("service", "settlement")),
	}
}

// Finalize converts a held reservation into a confirmed sale on payment
// confirmation. Safe to call any number of times for the same payment ref:
// an already-paid reservation is a success no-op, because payment providers
// redeliver confirmation events.
func (s *settlementService) Finalize(ctx context.Context, paymentRef string, reservationID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	reservation, err := s.repo.Reservation.FindByIDTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	if reservation.Status == entity.ReservationStatusPaid {
		s.log.Info("Duplicate payment confirmation ignored",
			zap.String("reservation_id", reservationID.String()),
			zap.String("payment_ref", paymentRef),
		)
		return nil
	}

	showtime, err := s.repo.Showtime.LockTx(ctx, tx, reservation.ShowtimeID)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if showtime == nil {
		return fmt.Errorf("finalize: showtime %s of reservation %s missing", reservation.ShowtimeID.String(), reservationID.String())
	}

	// Re-read under the aggregate lock; a concurrent finalize or sweep may
	// have committed between the first read and the lock.
	reservation, err = s.repo.Reservation.FindByIDTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	if reservation.Status == entity.ReservationStatusPaid {
		return nil
	}
	if reservation.Status == entity.ReservationStatusCancelled {
		s.logStale(reservationID, paymentRef, "reservation already cancelled")
		return ErrStaleReservation
	}

	seatRefs, err := s.repo.Reservation.FindSeatRefsTx(ctx, tx, reservationID)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	seatIDs := make([]uuid.UUID, len(seatRefs))
	labels := make([]string, len(seatRefs))
	for i, ref := range seatRefs {
		seatIDs[i] = ref.SeatID
		labels[i] = ref.SeatLabel
	}

	seats, err := s.repo.Showtime.FindSeatsByIDTx(ctx, tx, reservation.ShowtimeID, seatIDs)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	// Every seat must still carry THIS reservation's hold. The hold deadline
	// ties the seat to the reservation: a seat reclaimed and re-held by
	// someone else carries a different deadline. Losing this check to the
	// sweeper race is the one failure that needs manual reconciliation.
	if len(seats) != len(seatRefs) {
		s.logStale(reservationID, paymentRef, "seat records missing")
		return ErrStaleReservation
	}
	for _, seat := range seats {
		if seat.Status != entity.SeatStatusHeld || seat.HoldExpiry == nil || !seat.HoldExpiry.Equal(reservation.HoldExpiry) {
			s.logStale(reservationID, paymentRef, fmt.Sprintf("seat %s no longer held for this reservation", seat.Label))
			return ErrStaleReservation
		}
	}

	if err := s.repo.Showtime.BookSeatsTx(ctx, tx, seatIDs); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	if err := s.repo.Reservation.MarkPaidTx(ctx, tx, reservationID, paymentRef); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit finalize: %w", err)
	}

	s.log.Info("Reservation settled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("order_id", reservation.OrderID),
		zap.String("payment_ref", paymentRef),
		zap.Strings("seats", labels),
		zap.Int64("total_cents", reservation.TotalCents),
	)

	// Post-commit, best-effort. The sale stands regardless.
	if s.notifier != nil {
		event := queue.ReservationPaidEvent{
			ReservationID: reservation.ID.String(),
			OrderID:       reservation.OrderID,
			BuyerID:       reservation.BuyerID.String(),
			ShowtimeID:    showtime.ID.String(),
			ShowTitle:     showtime.Title,
			Screen:        showtime.Screen,
			StartsAt:      showtime.StartsAt.UTC().Format(time.RFC3339),
			SeatLabels:    labels,
			TotalCents:    reservation.TotalCents,
			Currency:      showtime.Currency,
			PaymentRef:    paymentRef,
			PaidAt:        time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.notifier.ReservationPaid(ctx, event); err != nil {
			s.log.Warn("Paid notification failed",
				zap.Error(err),
				zap.String("reservation_id", reservationID.String()),
			)
		}
	}

	return nil
}

func (s *settlementService) logStale(reservationID uuid.UUID, paymentRef, reason string) {
	// Money may have moved without inventory. Needs manual reconciliation.
	s.log.Error("Stale reservation at settlement",
		zap.String("reservation_id", reservationID.String()),
		zap.String("payment_ref", paymentRef),
		zap.String("reason", reason),
	)
}
