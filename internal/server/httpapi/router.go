package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", h.root)
	r.Get("/healthz", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/request-verification", h.wrap(h.requestVerification))
		r.Post("/verify-code", h.wrap(h.verifyCode))
		r.Post("/register", h.wrap(h.register))
		r.Post("/token", h.wrap(h.login))
		r.Get("/profile", h.wrap(h.profile))
		r.Post("/logout", h.wrap(h.logout))
		r.Post("/forgot-password", h.wrap(h.forgotPassword))
		r.Post("/reset-password", h.wrap(h.resetPassword))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.wrap(h.register))
		r.Get("/me", h.wrap(h.profile))
	})

	return r
}
