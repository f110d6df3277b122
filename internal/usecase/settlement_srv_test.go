package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vanishingReservationRepo serves the reservation once, then reports it
// gone, as if a retention cleanup deleted the row between two reads.
type vanishingReservationRepo struct {
	repository.ReservationRepository

	mu    sync.Mutex
	reads int
}

func (r *vanishingReservationRepo) FindByIDTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Reservation, error) {
	r.mu.Lock()
	r.reads++
	vanished := r.reads > 1
	r.mu.Unlock()

	if vanished {
		return nil, nil
	}
	return r.ReservationRepository.FindByIDTx(ctx, tx, id)
}

func acquireHold(t *testing.T, env *testEnv, buyerID uuid.UUID, showtimeID uuid.UUID, labels ...string) uuid.UUID {
	t.Helper()
	svc := NewHoldService(env.db, env.repo, env.config, env.log)
	resp, err := svc.AcquireHold(context.Background(), buyerID, &request.AcquireHoldRequest{
		ShowtimeID: showtimeID.String(),
		Seats:      labels,
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ReservationID)
}

func TestFinalize(t *testing.T) {
	env := newTestEnv()
	showtime, seats := env.seedShowtime(3)
	buyerID := uuid.New()
	reservationID := acquireHold(t, env, buyerID, showtime.ID, "A1", "A2")

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	require.NoError(t, svc.Finalize(context.Background(), "pay_123", reservationID))

	reservation := env.store.reservationByID(reservationID)
	assert.Equal(t, entity.ReservationStatusPaid, reservation.Status)
	require.NotNil(t, reservation.PaymentRef)
	assert.Equal(t, "pay_123", *reservation.PaymentRef)

	for _, seat := range seats[:2] {
		current := env.store.seatByID(seat.ID)
		assert.Equal(t, entity.SeatStatusBooked, current.Status)
		assert.Nil(t, current.HoldExpiry)
	}
	assert.Equal(t, entity.SeatStatusAvailable, env.store.seatByID(seats[2].ID).Status)

	events := env.notifier.published()
	require.Len(t, events, 1)
	assert.Equal(t, reservationID.String(), events[0].ReservationID)
	assert.Equal(t, buyerID.String(), events[0].BuyerID)
	assert.Equal(t, []string{"A1", "A2"}, events[0].SeatLabels)
	assert.Equal(t, int64(60000), events[0].TotalCents)
	assert.Equal(t, "usd", events[0].Currency)
	assert.Equal(t, "pay_123", events[0].PaymentRef)
}

// Payment providers redeliver confirmations. A second Finalize for a paid
// reservation must succeed without booking anything twice or re-publishing.
func TestFinalizeIdempotent(t *testing.T) {
	env := newTestEnv()
	showtime, _ := env.seedShowtime(2)
	reservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	require.NoError(t, svc.Finalize(context.Background(), "pay_123", reservationID))
	require.NoError(t, svc.Finalize(context.Background(), "pay_123", reservationID))
	require.NoError(t, svc.Finalize(context.Background(), "pay_123_retry", reservationID))

	assert.Len(t, env.notifier.published(), 1)
	assert.Equal(t, entity.ReservationStatusPaid, env.store.reservationByID(reservationID).Status)
}

func TestFinalizeUnknownReservation(t *testing.T) {
	env := newTestEnv()
	env.seedShowtime(1)

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	err := svc.Finalize(context.Background(), "pay_123", uuid.New())
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

// Confirmation arriving after the sweeper already cancelled the reservation.
func TestFinalizeAfterSweep(t *testing.T) {
	env := newTestEnv()
	env.config.Reservation.HoldDuration = -time.Minute // holds lapse immediately
	showtime, seats := env.seedShowtime(2)
	reservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	sweeper := NewSweeperService(env.db, env.repo, time.Minute, env.log)
	require.NoError(t, sweeper.SweepOnce(context.Background()))
	assert.Equal(t, entity.SeatStatusAvailable, env.store.seatByID(seats[0].ID).Status)
	assert.Equal(t, entity.ReservationStatusCancelled, env.store.reservationByID(reservationID).Status)

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	err := svc.Finalize(context.Background(), "pay_late", reservationID)
	assert.ErrorIs(t, err, ErrStaleReservation)

	// Nothing was booked, nothing published.
	assert.Equal(t, entity.SeatStatusAvailable, env.store.seatByID(seats[0].ID).Status)
	assert.Empty(t, env.notifier.published())
}

// The tighter race: the hold lapsed, another buyer reclaimed the seat inline,
// and only then does the first buyer's confirmation land. The seat is held
// again, but under a different deadline, so it no longer belongs to the first
// reservation.
func TestFinalizeAfterSeatReclaimedByAnotherBuyer(t *testing.T) {
	env := newTestEnv()
	env.config.Reservation.HoldDuration = -time.Minute
	showtime, seats := env.seedShowtime(2)
	staleReservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	// Second buyer takes over the lapsed seat with a live hold.
	env.config.Reservation.HoldDuration = 15 * time.Minute
	freshReservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	err := svc.Finalize(context.Background(), "pay_stale", staleReservationID)
	assert.ErrorIs(t, err, ErrStaleReservation)

	// The second buyer's hold is intact and still settles normally.
	assert.Equal(t, entity.SeatStatusHeld, env.store.seatByID(seats[0].ID).Status)
	require.NoError(t, svc.Finalize(context.Background(), "pay_fresh", freshReservationID))
	assert.Equal(t, entity.SeatStatusBooked, env.store.seatByID(seats[0].ID).Status)
	assert.Equal(t, entity.ReservationStatusPaid, env.store.reservationByID(freshReservationID).Status)
}

// The reservation disappearing between the first read and the locked re-read
// is reported, not a panic.
func TestFinalizeReservationRemovedUnderLock(t *testing.T) {
	env := newTestEnv()
	showtime, seats := env.seedShowtime(1)
	reservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	env.repo.Reservation = &vanishingReservationRepo{ReservationRepository: env.repo.Reservation}

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	err := svc.Finalize(context.Background(), "pay_123", reservationID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// Nothing booked, nothing published.
	assert.Equal(t, entity.SeatStatusHeld, env.store.seatByID(seats[0].ID).Status)
	assert.Empty(t, env.notifier.published())
}

// Notification delivery is best-effort: a broker failure never rolls the sale
// back.
func TestFinalizeNotifierFailureDoesNotBlockSale(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("broker down")
	showtime, seats := env.seedShowtime(1)
	reservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	svc := NewSettlementService(env.db, env.repo, env.config, env.notifier, env.log)
	require.NoError(t, svc.Finalize(context.Background(), "pay_123", reservationID))

	assert.Equal(t, entity.ReservationStatusPaid, env.store.reservationByID(reservationID).Status)
	assert.Equal(t, entity.SeatStatusBooked, env.store.seatByID(seats[0].ID).Status)
}

func TestFinalizeWithNilNotifier(t *testing.T) {
	env := newTestEnv()
	showtime, _ := env.seedShowtime(1)
	reservationID := acquireHold(t, env, uuid.New(), showtime.ID, "A1")

	svc := NewSettlementService(env.db, env.repo, env.config, nil, env.log)
	require.NoError(t, svc.Finalize(context.Background(), "pay_123", reservationID))
	assert.Equal(t, entity.ReservationStatusPaid, env.store.reservationByID(reservationID).Status)
}
