// internal/wire/wire.go
package wire

import (
	"cinema-reservation/internal/adaptor"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/usecase"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/middleware"
	"cinema-reservation/pkg/utils"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router  *chi.Mux
	Sweeper *usecase.SweeperService
}

// Wiring menginisialisasi semua dependencies
func Wiring(
	db database.PgxIface,
	repo *repository.Repository,
	config *utils.Config,
	notifier usecase.PaidNotifier,
	rdb *redis.Client,
	logger *zap.Logger,
) *App {
	// Initialize services dan handlers
	service := usecase.NewService(db, repo, config, notifier, logger)
	handler := adaptor.NewHandler(service, config, logger)

	// Setup router
	router := setupRouter(handler, config, rdb, logger)

	return &App{
		Router:  router,
		Sweeper: service.Sweeper,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(
	handler *adaptor.Handler,
	config *utils.Config,
	rdb *redis.Client,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireReservation(r, handler.Reservation, config, rdb, logger)
	wirePayment(r, handler.Payment)
	wireShowtime(r, handler.Showtime)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
