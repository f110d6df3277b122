package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/queue"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// fakeStore is an in-memory stand-in for the Postgres schema. The repository
// fakes below all share one store; the per-showtime mutex in fakeTx plays the
// role of the showtime row lock, so the services' locking discipline is
// exercised for real.
type fakeStore struct {
	mu               sync.Mutex
	showtimes        map[uuid.UUID]*entity.Showtime
	seats            map[uuid.UUID]*entity.Seat
	reservations     map[uuid.UUID]*entity.Reservation
	reservationSeats map[uuid.UUID][]*entity.ReservationSeat

	lockMu        sync.Mutex
	showtimeLocks map[uuid.UUID]*sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		showtimes:        make(map[uuid.UUID]*entity.Showtime),
		seats:            make(map[uuid.UUID]*entity.Seat),
		reservations:     make(map[uuid.UUID]*entity.Reservation),
		reservationSeats: make(map[uuid.UUID][]*entity.ReservationSeat),
		showtimeLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *fakeStore) lockFor(showtimeID uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if _, ok := s.showtimeLocks[showtimeID]; !ok {
		s.showtimeLocks[showtimeID] = &sync.Mutex{}
	}
	return s.showtimeLocks[showtimeID]
}

func (s *fakeStore) seatByID(id uuid.UUID) *entity.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil
	}
	copied := *seat
	return &copied
}

func (s *fakeStore) reservationByID(id uuid.UUID) *entity.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil
	}
	copied := *r
	return &copied
}

// fakeDB implements database.PgxIface. Only Begin matters; the repository
// fakes never touch the query surface.
type fakeDB struct {
	store *fakeStore
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("fakeDB.Query should not be reached")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("fakeDB.QueryRow should not be reached")
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("fakeDB.Exec should not be reached")
}

func (db *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	return &fakeTx{store: db.store}, nil
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close()                         {}

// fakeTx tracks which showtime locks the transaction holds. Commit and
// Rollback release them; Rollback after Commit is a no-op, matching pgx.
type fakeTx struct {
	store *fakeStore

	mu     sync.Mutex
	held   []*sync.Mutex
	closed bool
}

func (tx *fakeTx) lockShowtime(showtimeID uuid.UUID) {
	l := tx.store.lockFor(showtimeID)
	l.Lock()
	tx.mu.Lock()
	tx.held = append(tx.held, l)
	tx.mu.Unlock()
}

func (tx *fakeTx) release() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return
	}
	tx.closed = true
	for _, l := range tx.held {
		l.Unlock()
	}
	tx.held = nil
}

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("fakeTx.Query should not be reached")
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("fakeTx.QueryRow should not be reached")
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("fakeTx.Exec should not be reached")
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.release()
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.release()
	return nil
}

// fakeShowtimeRepo implements repository.ShowtimeRepository over fakeStore.
type fakeShowtimeRepo struct {
	store *fakeStore
}

func (r *fakeShowtimeRepo) Create(ctx context.Context, showtime *entity.Showtime, seats []*entity.Seat) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *showtime
	r.store.showtimes[showtime.ID] = &copied
	for _, seat := range seats {
		seatCopy := *seat
		r.store.seats[seat.ID] = &seatCopy
	}
	return nil
}

func (r *fakeShowtimeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	showtime, ok := r.store.showtimes[id]
	if !ok {
		return nil, nil
	}
	copied := *showtime
	return &copied, nil
}

func (r *fakeShowtimeRepo) List(ctx context.Context, limit, offset int) ([]*entity.Showtime, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]*entity.Showtime, 0, len(r.store.showtimes))
	for _, showtime := range r.store.showtimes {
		copied := *showtime
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartsAt.Before(all[j].StartsAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeShowtimeRepo) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.showtimes)), nil
}

func (r *fakeShowtimeRepo) ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var seats []*entity.Seat
	for _, seat := range r.store.seats {
		if seat.ShowtimeID == showtimeID {
			copied := *seat
			seats = append(seats, &copied)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Label < seats[j].Label })
	return seats, nil
}

func (r *fakeShowtimeRepo) UpdateSeatPrice(ctx context.Context, showtimeID uuid.UUID, label string, priceCents int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, seat := range r.store.seats {
		if seat.ShowtimeID == showtimeID && seat.Label == label {
			seat.PriceCents = priceCents
			seat.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeShowtimeRepo) LockTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Showtime, error) {
	ftx := tx.(*fakeTx)
	r.store.mu.Lock()
	_, exists := r.store.showtimes[id]
	r.store.mu.Unlock()
	if !exists {
		return nil, nil
	}
	ftx.lockShowtime(id)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *r.store.showtimes[id]
	return &copied, nil
}

func (r *fakeShowtimeRepo) FindSeatsByLabelTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, labels []string) ([]*entity.Seat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		wanted[label] = struct{}{}
	}
	var seats []*entity.Seat
	for _, seat := range r.store.seats {
		if seat.ShowtimeID != showtimeID {
			continue
		}
		if _, ok := wanted[seat.Label]; ok {
			copied := *seat
			seats = append(seats, &copied)
		}
	}
	return seats, nil
}

func (r *fakeShowtimeRepo) FindSeatsByIDTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, seatIDs []uuid.UUID) ([]*entity.Seat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var seats []*entity.Seat
	for _, id := range seatIDs {
		seat, ok := r.store.seats[id]
		if !ok || seat.ShowtimeID != showtimeID {
			continue
		}
		copied := *seat
		seats = append(seats, &copied)
	}
	return seats, nil
}

func (r *fakeShowtimeRepo) HoldSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range seatIDs {
		seat, ok := r.store.seats[id]
		if !ok {
			return fmt.Errorf("hold seats: expected %d rows, updated fewer", len(seatIDs))
		}
		expiry := expiresAt
		seat.Status = entity.SeatStatusHeld
		seat.HoldExpiry = &expiry
		seat.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeShowtimeRepo) BookSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range seatIDs {
		seat, ok := r.store.seats[id]
		if !ok {
			return fmt.Errorf("book seats: expected %d rows, updated fewer", len(seatIDs))
		}
		seat.Status = entity.SeatStatusBooked
		seat.HoldExpiry = nil
		seat.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeShowtimeRepo) ReleaseSeatsTx(ctx context.Context, tx database.Tx, seatIDs []uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range seatIDs {
		if seat, ok := r.store.seats[id]; ok {
			seat.Status = entity.SeatStatusAvailable
			seat.HoldExpiry = nil
			seat.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *fakeShowtimeRepo) ReclaimLapsedTx(ctx context.Context, tx database.Tx, showtimeID uuid.UUID, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var reclaimed int64
	for _, seat := range r.store.seats {
		if seat.ShowtimeID != showtimeID {
			continue
		}
		if seat.Status == entity.SeatStatusHeld && seat.HoldExpiry != nil && !seat.HoldExpiry.After(now) {
			seat.Status = entity.SeatStatusAvailable
			seat.HoldExpiry = nil
			seat.UpdatedAt = time.Now()
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (r *fakeShowtimeRepo) FindShowtimesWithLapsedHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, seat := range r.store.seats {
		if seat.Status == entity.SeatStatusHeld && seat.HoldExpiry != nil && !seat.HoldExpiry.After(now) {
			if _, ok := seen[seat.ShowtimeID]; !ok {
				seen[seat.ShowtimeID] = struct{}{}
				ids = append(ids, seat.ShowtimeID)
			}
		}
	}
	return ids, nil
}

// fakeReservationRepo implements repository.ReservationRepository.
type fakeReservationRepo struct {
	store *fakeStore
}

func (r *fakeReservationRepo) CreateTx(ctx context.Context, tx database.Tx, reservation *entity.Reservation, seats []*entity.ReservationSeat) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *reservation
	r.store.reservations[reservation.ID] = &copied
	refs := make([]*entity.ReservationSeat, len(seats))
	for i, seat := range seats {
		seatCopy := *seat
		refs[i] = &seatCopy
	}
	r.store.reservationSeats[reservation.ID] = refs
	return nil
}

func (r *fakeReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	return r.store.reservationByID(id), nil
}

func (r *fakeReservationRepo) FindByIDTx(ctx context.Context, tx database.Tx, id uuid.UUID) (*entity.Reservation, error) {
	return r.store.reservationByID(id), nil
}

func (r *fakeReservationRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []*entity.Reservation
	for _, reservation := range r.store.reservations {
		if reservation.BuyerID == buyerID {
			copied := *reservation
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeReservationRepo) CountByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, reservation := range r.store.reservations {
		if reservation.BuyerID == buyerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeReservationRepo) FindSeatRefs(ctx context.Context, reservationID uuid.UUID) ([]*entity.ReservationSeat, error) {
	return r.findSeatRefs(reservationID), nil
}

func (r *fakeReservationRepo) FindSeatRefsTx(ctx context.Context, tx database.Tx, reservationID uuid.UUID) ([]*entity.ReservationSeat, error) {
	return r.findSeatRefs(reservationID), nil
}

func (r *fakeReservationRepo) findSeatRefs(reservationID uuid.UUID) []*entity.ReservationSeat {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	refs := r.store.reservationSeats[reservationID]
	out := make([]*entity.ReservationSeat, len(refs))
	for i, ref := range refs {
		copied := *ref
		out[i] = &copied
	}
	return out
}

func (r *fakeReservationRepo) MarkPaidTx(ctx context.Context, tx database.Tx, id uuid.UUID, paymentRef string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reservation, ok := r.store.reservations[id]
	if !ok {
		return fmt.Errorf("mark paid: reservation %s not found", id.String())
	}
	ref := paymentRef
	reservation.Status = entity.ReservationStatusPaid
	reservation.PaymentRef = &ref
	reservation.UpdatedAt = time.Now()
	return nil
}

func (r *fakeReservationRepo) MarkCancelledTx(ctx context.Context, tx database.Tx, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reservation, ok := r.store.reservations[id]
	if !ok {
		return fmt.Errorf("mark cancelled: reservation %s not found", id.String())
	}
	reservation.Status = entity.ReservationStatusCancelled
	reservation.UpdatedAt = time.Now()
	return nil
}

func (r *fakeReservationRepo) CancelLapsed(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var cancelled int64
	for _, reservation := range r.store.reservations {
		if reservation.Status == entity.ReservationStatusPendingPayment && !reservation.HoldExpiry.After(now) {
			reservation.Status = entity.ReservationStatusCancelled
			reservation.UpdatedAt = time.Now()
			cancelled++
		}
	}
	return cancelled, nil
}

// fakeNotifier records published events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.ReservationPaidEvent
	err    error
}

func (n *fakeNotifier) ReservationPaid(ctx context.Context, event queue.ReservationPaidEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) published() []queue.ReservationPaidEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]queue.ReservationPaidEvent, len(n.events))
	copy(out, n.events)
	return out
}

// testEnv bundles everything a service test needs.
type testEnv struct {
	store    *fakeStore
	db       *fakeDB
	repo     *repository.Repository
	config   *utils.Config
	notifier *fakeNotifier
	log      *zap.Logger
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	return &testEnv{
		store: store,
		db:    &fakeDB{store: store},
		repo: &repository.Repository{
			Showtime:    &fakeShowtimeRepo{store: store},
			Reservation: &fakeReservationRepo{store: store},
		},
		config: &utils.Config{
			Reservation: utils.ReservationConfig{
				HoldDuration:  15 * time.Minute,
				SweepInterval: time.Minute,
				Currency:      "usd",
			},
		},
		notifier: &fakeNotifier{},
		log:      zap.NewNop(),
	}
}

// seedShowtime creates a showtime with available seats A1..A<n> at 30000
// cents each, starting tomorrow.
func (e *testEnv) seedShowtime(n int) (*entity.Showtime, []*entity.Seat) {
	now := time.Now()
	showtime := &entity.Showtime{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:    "Dune Part Three",
		Screen:   "Studio 1",
		StartsAt: now.Add(24 * time.Hour),
		Currency: "usd",
	}

	seats := make([]*entity.Seat, n)
	for i := 0; i < n; i++ {
		seats[i] = &entity.Seat{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			ShowtimeID: showtime.ID,
			Label:      fmt.Sprintf("A%d", i+1),
			Row:        "A",
			Number:     i + 1,
			Type:       entity.SeatTypeRegular,
			PriceCents: 30000,
			Status:     entity.SeatStatusAvailable,
		}
	}

	if err := e.repo.Showtime.Create(context.Background(), showtime, seats); err != nil {
		panic(err)
	}
	return showtime, seats
}
