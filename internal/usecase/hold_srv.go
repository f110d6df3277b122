package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/dto/response"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HoldService interface {
	AcquireHold(ctx context.Context, buyerID uuid.UUID, req *request.AcquireHoldRequest) (*response.HoldResponse, error)
	GetReservation(ctx context.Context, buyerID, reservationID uuid.UUID) (*response.ReservationResponse, error)
	GetBuyerReservations(ctx context.Context, buyerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error)
}

type holdService struct {
	db     database.PgxIface
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewHoldService(db database.PgxIface, repo *repository.Repository, config *utils.Config, log *zap.Logger) HoldService {
	return &holdService{
		db:     db,
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "hold")),
	}
}

// AcquireHold claims the requested seats for one buyer for a bounded window.
// The whole operation is a single transaction that locks the showtime row
// first, so two holds racing for overlapping seats of the same showtime
// serialize and exactly one of them wins each seat.
func (s *holdService) AcquireHold(ctx context.Context, buyerID uuid.UUID, req *request.AcquireHoldRequest) (*response.HoldResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Acquire hold validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	showtimeID, err := uuid.Parse(req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", req.ShowtimeID, err)
	}

	// Dedupe labels, preserving request order
	labels := dedupeLabels(req.Seats)
	if len(labels) == 0 {
		return nil, ErrEmptySeatList
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin acquire hold: %w", err)
	}
	defer tx.Rollback(ctx)

	// Aggregate lock: serializes every seat transition for this showtime
	showtime, err := s.repo.Showtime.LockTx(ctx, tx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("acquire hold: %w", err)
	}
	if showtime == nil {
		return nil, ErrShowtimeNotFound
	}

	seats, err := s.repo.Showtime.FindSeatsByLabelTx(ctx, tx, showtimeID, labels)
	if err != nil {
		return nil, fmt.Errorf("acquire hold: %w", err)
	}

	byLabel := make(map[string]*entity.Seat, len(seats))
	for _, seat := range seats {
		byLabel[seat.Label] = seat
	}

	now := time.Now()
	resolved := make([]*entity.Seat, 0, len(labels))
	for _, label := range labels {
		seat, ok := byLabel[label]
		if !ok {
			return nil, &SeatNotFoundError{Seat: label}
		}

		switch seat.Status {
		case entity.SeatStatusBooked, entity.SeatStatusUnavailable:
			return nil, &SeatUnavailableError{Seat: label}
		case entity.SeatStatusHeld:
			// A live competing hold wins; a lapsed one is reclaimed inline.
			if !seat.HoldLapsed(now) {
				return nil, &SeatUnavailableError{Seat: label}
			}
		}

		resolved = append(resolved, seat)
	}

	holdExpiry := now.Add(s.config.Reservation.HoldDuration)

	var totalCents int64
	seatIDs := make([]uuid.UUID, len(resolved))
	for i, seat := range resolved {
		totalCents += seat.PriceCents
		seatIDs[i] = seat.ID
	}

	if err := s.repo.Showtime.HoldSeatsTx(ctx, tx, seatIDs, holdExpiry); err != nil {
		return nil, fmt.Errorf("acquire hold: %w", err)
	}

	reservation := &entity.Reservation{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:    utils.GenerateOrderID(),
		BuyerID:    buyerID,
		ShowtimeID: showtimeID,
		TotalCents: totalCents,
		Status:     entity.ReservationStatusPendingPayment,
		HoldExpiry: holdExpiry,
	}

	reservationSeats := make([]*entity.ReservationSeat, len(resolved))
	for i, seat := range resolved {
		reservationSeats[i] = &entity.ReservationSeat{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: now,
			},
			ReservationID: reservation.ID,
			SeatID:        seat.ID,
			SeatLabel:     seat.Label,
			SeatType:      seat.Type,
			PriceCents:    seat.PriceCents,
		}
	}

	if err := s.repo.Reservation.CreateTx(ctx, tx, reservation, reservationSeats); err != nil {
		return nil, fmt.Errorf("acquire hold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit acquire hold: %w", err)
	}

	s.log.Info("Hold acquired",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("order_id", reservation.OrderID),
		zap.String("buyer_id", buyerID.String()),
		zap.String("showtime_id", showtimeID.String()),
		zap.Strings("seats", labels),
		zap.Int64("total_cents", totalCents),
		zap.Time("hold_expires_at", holdExpiry),
	)

	return &response.HoldResponse{
		ReservationID: reservation.ID.String(),
		OrderID:       reservation.OrderID,
		ShowtimeID:    showtimeID.String(),
		Seats:         labels,
		TotalCents:    totalCents,
		Currency:      showtime.Currency,
		HoldExpiresAt: holdExpiry,
	}, nil
}

func (s *holdService) GetReservation(ctx context.Context, buyerID, reservationID uuid.UUID) (*response.ReservationResponse, error) {
	reservation, err := s.repo.Reservation.FindByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	if reservation.BuyerID != buyerID {
		return nil, ErrNotOwner
	}

	seats, err := s.repo.Reservation.FindSeatRefs(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation seats: %w", err)
	}

	resp := response.ReservationToResponse(reservation, seats)
	return &resp, nil
}

func (s *holdService) GetBuyerReservations(ctx context.Context, buyerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	reservations, err := s.repo.Reservation.FindByBuyer(ctx, buyerID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("get buyer reservations: %w", err)
	}

	total, err := s.repo.Reservation.CountByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("count buyer reservations: %w", err)
	}

	reservationResponses := make([]response.ReservationResponse, len(reservations))
	for i, reservation := range reservations {
		seats, err := s.repo.Reservation.FindSeatRefs(ctx, reservation.ID)
		if err != nil {
			return nil, fmt.Errorf("get reservation seats: %w", err)
		}
		reservationResponses[i] = response.ReservationToResponse(reservation, seats)
	}

	return response.NewPaginatedResponse(reservationResponses, req.Page, req.PerPage, total), nil
}

func dedupeLabels(labels []string) []string {
	unique := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		unique = append(unique, label)
	}
	return unique
}
