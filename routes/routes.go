package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kickplan/tournament-mirror/handlers"
	"github.com/kickplan/tournament-mirror/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	webhookHandler *handlers.WebhookHandler,
	syncHandler *handlers.SyncHandler,
	liveHandler *handlers.LiveHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", healthHandler.Check)
	router.Handle("/metrics", promhttp.Handler())

	// The platform posts deliveries here; mode selects production or
	// diagnostic processing.
	router.Post("/webhook/{mode}", webhookHandler.Receive)

	router.Get("/ws/{tournamentID}", liveHandler.ServeWs)

	// Operator surface.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Post("/tournaments/{id}/sync", syncHandler.TriggerFullSync)
		r.Get("/webhook-deliveries", syncHandler.ListDeliveries)
	})
}
