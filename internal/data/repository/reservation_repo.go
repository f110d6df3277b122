package repository

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	CreateTx(ctx context.Context, tx database.Tx, reservation *entity.Reservation, seats []*entity.ReservationSeat) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByIDTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Reservation, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*entity.Reservation, error)
	CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error)
	FindSeatRefs(ctx context.Context, reservationID uuid.UUID) ([]*entity.ReservationSeat, error)
	FindSeatRefsTx(ctx context.Context, tx database.Tx, reservationID uuid.UUID) ([]*entity.ReservationSeat, error)
	MarkPaidTx(ctx context.Context, tx database.Tx, id uuid.UUID, paymentRef string) error
	MarkCancelledTx(ctx context.Context, tx database.Tx, id uuid.UUID) error

	// Sweeper pass: lapsed pending reservations become cancelled in one
	// statement, independent of the per-showtime seat reclaim.
	CancelLapsed(ctx context.Context, now time.Time) (int64, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `id, order_id, buyer_id, showtime_id, total_cents, status, hold_expires_at, payment_ref, created_at, updated_at`

func (r *reservationRepository) CreateTx(ctx context.Context, tx database.Tx, reservation *entity.Reservation, seats []*entity.ReservationSeat) error {
	query := `
		INSERT INTO reservations (id, order_id, buyer_id, showtime_id, total_cents, status, hold_expires_at, payment_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		reservation.ID,
		reservation.OrderID,
		reservation.BuyerID,
		reservation.ShowtimeID,
		reservation.TotalCents,
		reservation.Status,
		reservation.HoldExpiry,
		reservation.PaymentRef,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("order_id", reservation.OrderID),
			zap.String("buyer_id", reservation.BuyerID.String()),
		)
		return fmt.Errorf("create reservation %s: %w", reservation.OrderID, err)
	}

	seatQuery := `
		INSERT INTO reservation_seats (id, reservation_id, seat_id, seat_label, seat_type, price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, seat := range seats {
		_, err = tx.Exec(ctx, seatQuery,
			seat.ID,
			seat.ReservationID,
			seat.SeatID,
			seat.SeatLabel,
			seat.SeatType,
			seat.PriceCents,
			seat.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create reservation seat",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
				zap.String("seat_label", seat.SeatLabel),
			)
			return fmt.Errorf("create reservation seat %s: %w", seat.SeatLabel, err)
		}
	}

	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	return r.findByID(ctx, r.db, id)
}

func (r *reservationRepository) FindByIDTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Reservation, error) {
	return r.findByID(ctx, tx, id)
}

func (r *reservationRepository) findByID(ctx context.Context, q database.Querier, id uuid.UUID) (*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1
	`

	var reservation entity.Reservation
	err := q.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.OrderID,
		&reservation.BuyerID,
		&reservation.ShowtimeID,
		&reservation.TotalCents,
		&reservation.Status,
		&reservation.HoldExpiry,
		&reservation.PaymentRef,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("find reservation by ID %s: %w", id.String(), err)
	}

	return &reservation, nil
}

func (r *reservationRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, buyerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by buyer",
			zap.Error(err),
			zap.String("buyer_id", buyerID.String()),
		)
		return nil, fmt.Errorf("find reservations by buyer %s: %w", buyerID.String(), err)
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		var reservation entity.Reservation
		err := rows.Scan(
			&reservation.ID,
			&reservation.OrderID,
			&reservation.BuyerID,
			&reservation.ShowtimeID,
			&reservation.TotalCents,
			&reservation.Status,
			&reservation.HoldExpiry,
			&reservation.PaymentRef,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, &reservation)
	}

	return reservations, nil
}

func (r *reservationRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE buyer_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, buyerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count reservations by buyer",
			zap.Error(err),
			zap.String("buyer_id", buyerID.String()),
		)
		return 0, fmt.Errorf("count reservations by buyer %s: %w", buyerID.String(), err)
	}

	return count, nil
}

func (r *reservationRepository) FindSeatRefs(ctx context.Context, reservationID uuid.UUID) ([]*entity.ReservationSeat, error) {
	return r.findSeatRefs(ctx, r.db, reservationID)
}

func (r *reservationRepository) FindSeatRefsTx(ctx context.Context, tx database.Tx, reservationID uuid.UUID) ([]*entity.ReservationSeat, error) {
	return r.findSeatRefs(ctx, tx, reservationID)
}

func (r *reservationRepository) findSeatRefs(ctx context.Context, q database.Querier, reservationID uuid.UUID) ([]*entity.ReservationSeat, error) {
	query := `
		SELECT id, reservation_id, seat_id, seat_label, seat_type, price_cents, created_at
		FROM reservation_seats
		WHERE reservation_id = $1
		ORDER BY seat_label
	`

	rows, err := q.Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to find reservation seats",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find seats of reservation %s: %w", reservationID.String(), err)
	}
	defer rows.Close()

	var seats []*entity.ReservationSeat
	for rows.Next() {
		var seat entity.ReservationSeat
		err := rows.Scan(
			&seat.ID,
			&seat.ReservationID,
			&seat.SeatID,
			&seat.SeatLabel,
			&seat.SeatType,
			&seat.PriceCents,
			&seat.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan reservation seat row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation seat row: %w", err)
		}
		seats = append(seats, &seat)
	}

	return seats, nil
}

func (r *reservationRepository) MarkPaidTx(ctx context.Context, tx database.Tx, id uuid.UUID, paymentRef string) error {
	query := `
		UPDATE reservations
		SET status = 'paid', payment_ref = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, paymentRef)
	if err != nil {
		r.log.Error("Failed to mark reservation paid",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return fmt.Errorf("mark reservation %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

func (r *reservationRepository) MarkCancelledTx(ctx context.Context, tx database.Tx, id uuid.UUID) error {
	query := `
		UPDATE reservations
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark reservation cancelled",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return fmt.Errorf("mark reservation %s cancelled: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

func (r *reservationRepository) CancelLapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE reservations
		SET status = 'cancelled', updated_at = NOW()
		WHERE status = 'pending_payment' AND hold_expires_at <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to cancel lapsed reservations", zap.Error(err))
		return 0, fmt.Errorf("cancel lapsed reservations: %w", err)
	}

	return result.RowsAffected(), nil
}
