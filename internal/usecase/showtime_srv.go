package usecase

import (
	"context"
	"fmt"
	"time"

	"cinema-reservation/internal/data/entity"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/dto/request"
	"cinema-reservation/internal/dto/response"
	"cinema-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default prices per seat type, applied when the catalog template carries no
// explicit price.
var defaultPriceCents = map[entity.SeatType]int64{
	entity.SeatTypeRegular: 30000,
	entity.SeatTypePremium: 45000,
	entity.SeatTypeVIP:     60000,
}

type ShowtimeService interface {
	CreateShowtime(ctx context.Context, req *request.CreateShowtimeRequest) (*response.ShowtimeResponse, error)
	ListShowtimes(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ShowtimeResponse], error)
	GetSeats(ctx context.Context, showtimeID uuid.UUID) ([]response.SeatResponse, error)
	UpdateSeatPrice(ctx context.Context, showtimeID uuid.UUID, label string, priceCents int64) error
}

type showtimeService struct {
	repo   *repository.Repository
	config *utils.Config
	log    *zap.Logger
}

func NewShowtimeService(repo *repository.Repository, config *utils.Config, log *zap.Logger) ShowtimeService {
	return &showtimeService{
		repo:   repo,
		config: config,
		log:    log.With(zap.String("service", "showtime")),
	}
}

// CreateShowtime seeds a new ledger from the catalog service's seat template.
// This is the only point where the catalog is consulted; the reservation core
// never calls back into it afterward.
func (s *showtimeService) CreateShowtime(ctx context.Context, req *request.CreateShowtimeRequest) (*response.ShowtimeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create showtime validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_at %s: %w", req.StartsAt, err)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.config.Reservation.Currency
	}

	seen := make(map[string]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if _, ok := seen[seat.Label]; ok {
			return nil, fmt.Errorf("duplicate seat label %s in template", seat.Label)
		}
		seen[seat.Label] = struct{}{}
	}

	now := time.Now()
	showtime := &entity.Showtime{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:    req.Title,
		Screen:   req.Screen,
		StartsAt: startsAt,
		Currency: currency,
	}

	seats := make([]*entity.Seat, len(req.Seats))
	for i, tmpl := range req.Seats {
		seatType := entity.SeatType(tmpl.Type)

		status := entity.SeatStatusAvailable
		if seatType == entity.SeatTypeUnavailable {
			status = entity.SeatStatusUnavailable
		}

		price := tmpl.PriceCents
		if price == 0 {
			price = defaultPriceCents[seatType]
		}

		seats[i] = &entity.Seat{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			ShowtimeID: showtime.ID,
			Label:      tmpl.Label,
			Row:        tmpl.Row,
			Number:     tmpl.Number,
			Type:       seatType,
			PriceCents: price,
			Status:     status,
		}
	}

	if err := s.repo.Showtime.Create(ctx, showtime, seats); err != nil {
		s.log.Error("Failed to create showtime",
			zap.Error(err),
			zap.String("title", req.Title),
		)
		return nil, fmt.Errorf("create showtime: %w", err)
	}

	s.log.Info("Showtime created",
		zap.String("showtime_id", showtime.ID.String()),
		zap.String("title", showtime.Title),
		zap.Int("seats", len(seats)),
	)

	resp := response.ShowtimeToResponse(showtime)
	return &resp, nil
}

func (s *showtimeService) ListShowtimes(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ShowtimeResponse], error) {
	showtimes, err := s.repo.Showtime.List(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list showtimes: %w", err)
	}

	total, err := s.repo.Showtime.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count showtimes: %w", err)
	}

	showtimeResponses := make([]response.ShowtimeResponse, len(showtimes))
	for i, showtime := range showtimes {
		showtimeResponses[i] = response.ShowtimeToResponse(showtime)
	}

	return response.NewPaginatedResponse(showtimeResponses, req.Page, req.PerPage, total), nil
}

func (s *showtimeService) GetSeats(ctx context.Context, showtimeID uuid.UUID) ([]response.SeatResponse, error) {
	showtime, err := s.repo.Showtime.FindByID(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}
	if showtime == nil {
		return nil, ErrShowtimeNotFound
	}

	seats, err := s.repo.Showtime.ListSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}

	now := time.Now()
	seatResponses := make([]response.SeatResponse, len(seats))
	for i, seat := range seats {
		seatResponses[i] = response.SeatToResponse(seat, now)
	}

	return seatResponses, nil
}

// UpdateSeatPrice edits a seat's list price. Reservations already holding the
// seat keep their snapshot price; this only affects future holds.
func (s *showtimeService) UpdateSeatPrice(ctx context.Context, showtimeID uuid.UUID, label string, priceCents int64) error {
	if priceCents <= 0 {
		return fmt.Errorf("invalid price %d: must be positive", priceCents)
	}

	updated, err := s.repo.Showtime.UpdateSeatPrice(ctx, showtimeID, label, priceCents)
	if err != nil {
		return fmt.Errorf("update seat price: %w", err)
	}
	if !updated {
		return &SeatNotFoundError{Seat: label}
	}

	s.log.Info("Seat price updated",
		zap.String("showtime_id", showtimeID.String()),
		zap.String("label", label),
		zap.Int64("price_cents", priceCents),
	)

	return nil
}
