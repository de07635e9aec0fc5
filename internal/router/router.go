package router

import (
	"net/http"

	"github.com/adisyon/api/internal/config"
	"github.com/adisyon/api/internal/enum"
	"github.com/adisyon/api/internal/handler"
	mw "github.com/adisyon/api/internal/middleware"
	"github.com/adisyon/api/internal/service"
	"github.com/adisyon/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
// Staff routes require a token for the restaurant in the path; customer
// submission is public and the WebSocket checks its own query token.
func New(cfg *config.Config, logger *zap.Logger, svc *service.TabService, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// Customer QR ordering (public)
	handler.NewPublicHandler(svc, logger).RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Restaurant-scoped staff routes
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRestaurant)
		r.Use(mw.RequireRole(enum.StaffRoles...))

		handler.NewOrderHandler(svc, logger).RegisterRoutes(r)
	})

	logger.Info("router initialized")
	return r
}
