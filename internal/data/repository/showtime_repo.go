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

type ShowtimeRepository interface {
	Create(ctx context.Context, showtime *entity.Showtime, seats []*entity.Seat) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Showtime, error)
	Count(ctx context.Context) (int64, error)
	ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error)
	UpdateSeatPrice(ctx context.Context, showtimeID uuid.UUID, label string, priceCents int64) (bool, error)

	// Transactional methods. LockTx must be the first statement of every
	// transaction that mutates seats: it takes the aggregate row lock that
	// serializes all seat transitions for one showtime.
	LockTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Showtime, error)
	FindSeatsByLabelTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, labels []string) ([]*entity.Seat, error)
	FindSeatsByIDTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, seatIDs []uuid.UUID) ([]*entity.Seat, error)
	HoldSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID, expiresAt time.Time) error
	BookSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error
	ReleaseSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error
	ReclaimLapsedTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, now time.Time) (int64, error)

	// Sweeper query: showtimes that currently carry at least one lapsed hold.
	FindShowtimesWithLapsedHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type showtimeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewShowtimeRepository(db database.PgxIface, log *zap.Logger) ShowtimeRepository {
	return &showtimeRepository{
		db:  db,
		log: log.With(zap.String("repository", "showtime")),
	}
}

const seatColumns = `id, showtime_id, label, seat_row, seat_number, seat_type, price_cents, status, hold_expires_at, created_at, updated_at`

func (r *showtimeRepository) Create(ctx context.Context, showtime *entity.Showtime, seats []*entity.Seat) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create showtime: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO showtimes (id, title, screen, starts_at, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, query,
		showtime.ID,
		showtime.Title,
		showtime.Screen,
		showtime.StartsAt,
		showtime.Currency,
		showtime.CreatedAt,
		showtime.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create showtime",
			zap.Error(err),
			zap.String("showtime_id", showtime.ID.String()),
		)
		return fmt.Errorf("create showtime %s: %w", showtime.ID.String(), err)
	}

	seatQuery := `
		INSERT INTO seats (id, showtime_id, label, seat_row, seat_number, seat_type, price_cents, status, hold_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, seat := range seats {
		_, err = tx.Exec(ctx, seatQuery,
			seat.ID,
			seat.ShowtimeID,
			seat.Label,
			seat.Row,
			seat.Number,
			seat.Type,
			seat.PriceCents,
			seat.Status,
			seat.HoldExpiry,
			seat.CreatedAt,
			seat.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create seat",
				zap.Error(err),
				zap.String("showtime_id", showtime.ID.String()),
				zap.String("label", seat.Label),
			)
			return fmt.Errorf("create seat %s: %w", seat.Label, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create showtime %s: %w", showtime.ID.String(), err)
	}

	return nil
}

func (r *showtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	query := `
		SELECT id, title, screen, starts_at, currency, created_at, updated_at
		FROM showtimes
		WHERE id = $1
	`

	var showtime entity.Showtime
	err := r.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.Title,
		&showtime.Screen,
		&showtime.StartsAt,
		&showtime.Currency,
		&showtime.CreatedAt,
		&showtime.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find showtime by ID",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("find showtime by ID %s: %w", id.String(), err)
	}

	return &showtime, nil
}

func (r *showtimeRepository) List(ctx context.Context, limit, offset int) ([]*entity.Showtime, error) {
	query := `
		SELECT id, title, screen, starts_at, currency, created_at, updated_at
		FROM showtimes
		ORDER BY starts_at
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list showtimes", zap.Error(err))
		return nil, fmt.Errorf("list showtimes: %w", err)
	}
	defer rows.Close()

	var showtimes []*entity.Showtime
	for rows.Next() {
		var showtime entity.Showtime
		err := rows.Scan(
			&showtime.ID,
			&showtime.Title,
			&showtime.Screen,
			&showtime.StartsAt,
			&showtime.Currency,
			&showtime.CreatedAt,
			&showtime.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan showtime row", zap.Error(err))
			return nil, fmt.Errorf("scan showtime row: %w", err)
		}
		showtimes = append(showtimes, &showtime)
	}

	return showtimes, nil
}

func (r *showtimeRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM showtimes`

	var count int64
	err := r.db.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count showtimes", zap.Error(err))
		return 0, fmt.Errorf("count showtimes: %w", err)
	}

	return count, nil
}

func (r *showtimeRepository) ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seats
		WHERE showtime_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := r.db.Query(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to list seats",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("list seats for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (r *showtimeRepository) UpdateSeatPrice(ctx context.Context, showtimeID uuid.UUID, label string, priceCents int64) (bool, error) {
	query := `
		UPDATE seats
		SET price_cents = $3, updated_at = NOW()
		WHERE showtime_id = $1 AND label = $2
	`

	result, err := r.db.Exec(ctx, query, showtimeID, label, priceCents)
	if err != nil {
		r.log.Error("Failed to update seat price",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.String("label", label),
		)
		return false, fmt.Errorf("update price of seat %s: %w", label, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *showtimeRepository) LockTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Showtime, error) {
	query := `
		SELECT id, title, screen, starts_at, currency, created_at, updated_at
		FROM showtimes
		WHERE id = $1
		FOR UPDATE
	`

	var showtime entity.Showtime
	err := tx.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.Title,
		&showtime.Screen,
		&showtime.StartsAt,
		&showtime.Currency,
		&showtime.CreatedAt,
		&showtime.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock showtime",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("lock showtime %s: %w", id.String(), err)
	}

	return &showtime, nil
}

func (r *showtimeRepository) FindSeatsByLabelTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, labels []string) ([]*entity.Seat, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seats
		WHERE showtime_id = $1 AND label = ANY($2)
	`

	rows, err := tx.Query(ctx, query, showtimeID, labels)
	if err != nil {
		r.log.Error("Failed to find seats by label",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.Strings("labels", labels),
		)
		return nil, fmt.Errorf("find seats by label for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (r *showtimeRepository) FindSeatsByIDTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, seatIDs []uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seats
		WHERE showtime_id = $1 AND id = ANY($2)
	`

	rows, err := tx.Query(ctx, query, showtimeID, seatIDs)
	if err != nil {
		r.log.Error("Failed to find seats by ID",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("find seats by ID for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (r *showtimeRepository) HoldSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID, expiresAt time.Time) error {
	query := `
		UPDATE seats
		SET status = 'held', hold_expires_at = $2, updated_at = NOW()
		WHERE id = ANY($1)
	`

	result, err := tx.Exec(ctx, query, seatIDs, expiresAt)
	if err != nil {
		r.log.Error("Failed to hold seats", zap.Error(err))
		return fmt.Errorf("hold %d seats: %w", len(seatIDs), err)
	}

	if int(result.RowsAffected()) != len(seatIDs) {
		return fmt.Errorf("hold seats: expected %d rows, updated %d", len(seatIDs), result.RowsAffected())
	}

	return nil
}

func (r *showtimeRepository) BookSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error {
	query := `
		UPDATE seats
		SET status = 'booked', hold_expires_at = NULL, updated_at = NOW()
		WHERE id = ANY($1)
	`

	result, err := tx.Exec(ctx, query, seatIDs)
	if err != nil {
		r.log.Error("Failed to book seats", zap.Error(err))
		return fmt.Errorf("book %d seats: %w", len(seatIDs), err)
	}

	if int(result.RowsAffected()) != len(seatIDs) {
		return fmt.Errorf("book seats: expected %d rows, updated %d", len(seatIDs), result.RowsAffected())
	}

	return nil
}

func (r *showtimeRepository) ReleaseSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error {
	if len(seatIDs) == 0 {
		return nil
	}

	query := `
		UPDATE seats
		SET status = 'available', hold_expires_at = NULL, updated_at = NOW()
		WHERE id = ANY($1)
	`

	_, err := tx.Exec(ctx, query, seatIDs)
	if err != nil {
		r.log.Error("Failed to release seats", zap.Error(err))
		return fmt.Errorf("release %d seats: %w", len(seatIDs), err)
	}

	return nil
}

func (r *showtimeRepository) ReclaimLapsedTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE seats
		SET status = 'available', hold_expires_at = NULL, updated_at = NOW()
		WHERE showtime_id = $1 AND status = 'held' AND hold_expires_at <= $2
	`

	result, err := tx.Exec(ctx, query, showtimeID, now)
	if err != nil {
		r.log.Error("Failed to reclaim lapsed holds",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return 0, fmt.Errorf("reclaim lapsed holds for showtime %s: %w", showtimeID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *showtimeRepository) FindShowtimesWithLapsedHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT showtime_id
		FROM seats
		WHERE status = 'held' AND hold_expires_at <= $1
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find showtimes with lapsed holds", zap.Error(err))
		return nil, fmt.Errorf("find showtimes with lapsed holds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.log.Error("Failed to scan showtime ID", zap.Error(err))
			return nil, fmt.Errorf("scan showtime ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func scanSeats(rows pgx.Rows) ([]*entity.Seat, error) {
	var seats []*entity.Seat
	for rows.Next() {
		var seat entity.Seat
		err := rows.Scan(
			&seat.ID,
			&seat.ShowtimeID,
			&seat.Label,
			&seat.Row,
			&seat.Number,
			&seat.Type,
			&seat.PriceCents,
			&seat.Status,
			&seat.HoldExpiry,
			&seat.CreatedAt,
			&seat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, &seat)
	}

	return seats, nil
}
