package http

import (
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/port/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the public catalog surface and the authenticated
// owner/payment surface.
func NewRouter(h *AdHandler, jwtSecret string, log logger.Logger) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)

	mux.Get("/api/categories", h.HandleListCategories)
	mux.Get("/api/ads", h.HandleSearchAds)
	mux.Get("/api/ads/{adID}", h.HandleGetAd)

	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		r.Post("/api/ads", h.HandleCreateAd)
		r.Put("/api/ads/{adID}", h.HandleUpdateAd)
		r.Delete("/api/ads/{adID}", h.HandleDeleteAd)
		r.Get("/api/my-ads", h.HandleListMyAds)

		r.Post("/api/payment/create-session", h.HandleCreatePaymentSession)
		r.Get("/api/payment/status/{sessionID}", h.HandlePaymentStatus)

		r.Post("/api/images", h.HandleUploadImage)
	})

	return mux
}
