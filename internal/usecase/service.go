package usecase

import (
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Hold         HoldService
	Settlement   SettlementService
	Cancellation CancellationService
	Showtime     ShowtimeService
	Sweeper      *SweeperService
}

func NewService(db database.PgxIface, repo *repository.Repository, config *utils.Config, notifier PaidNotifier, log *zap.Logger) *Service {
	return &Service{
		Hold:         NewHoldService(db, repo, config, log),
		Settlement:   NewSettlementService(db, repo, config, notifier, log),
		Cancellation: NewCancellationService(db, repo, log),
		Showtime:     NewShowtimeService(repo, config, log),
		Sweeper:      NewSweeperService(db, repo, config.Reservation.SweepInterval, log),
	}
}
