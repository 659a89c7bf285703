package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marca-labs/brandgov/internal/api"
	"github.com/marca-labs/brandgov/internal/api/handlers"
	"github.com/marca-labs/brandgov/internal/api/middleware"
)

type RouterConfig struct {
	TokenValidator    middleware.TokenValidator
	AuthHandler       *handlers.AuthHandler
	ManualHandler     *handlers.ManualHandler
	AssetHandler      *handlers.AssetHandler
	GovernanceHandler *handlers.GovernanceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 15 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/login", cfg.AuthHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.TokenValidator))

		r.Get("/auth/me", cfg.AuthHandler.Me)

		r.Route("/manuals", func(r chi.Router) {
			r.Post("/", cfg.ManualHandler.Create)
			r.Get("/", cfg.ManualHandler.List)
			r.Get("/{id}", cfg.ManualHandler.Get)
			r.Post("/{id}/reindex", cfg.ManualHandler.Reindex)
			r.Post("/{id}/search", cfg.ManualHandler.Search)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Post("/", cfg.AssetHandler.Generate)
			r.Get("/", cfg.AssetHandler.List)
			r.Get("/{id}", cfg.AssetHandler.Get)
			r.Get("/{id}/journey", cfg.AssetHandler.Journey)
			r.Get("/{id}/audits", cfg.AssetHandler.Audits)
			r.Get("/{id}/audits/latest", cfg.AssetHandler.LatestAudit)
			r.Post("/{id}/review-a", cfg.GovernanceHandler.ReviewA)
			r.Post("/{id}/review-b", cfg.GovernanceHandler.ReviewB)
			r.Post("/{id}/audit", cfg.GovernanceHandler.AuditImage)
		})
	})

	return r
}
