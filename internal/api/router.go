package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"matchmaker/internal/config"
	"matchmaker/internal/middleware"
	"matchmaker/internal/service"
	"matchmaker/internal/util"
	"matchmaker/internal/version"
)

type Handlers struct {
	cfg   config.Config
	svc   *service.Service
	pages *pageSet
}

// Form bodies are small; anything larger is rejected before parsing.
const maxFormBytes = 64 << 10

func NewRouter(cfg config.Config, svc *service.Service) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, pages: mustLoadPages()}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(cfg.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Session(svc, cfg.SessionCookieName))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)

	r.Get("/", h.Landing)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireApproved)
		r.Get("/dashboard", h.Dashboard)
		r.Post("/report/{id}", h.FileReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/admin", h.Admin)
		r.Post("/approve/{id}", h.Approve)
	})

	r.Route("/api", func(r chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type"},
				AllowCredentials: true,
			}))
		}
		r.Post("/login", h.APILogin)
		r.Get("/profiles", h.APIProfiles)
	})

	return r
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ready := map[string]any{
		"checked_at": time.Now().UTC().Format(time.RFC3339),
		"version":    version.Current(),
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		ready["status"] = "degraded"
		ready["components"] = map[string]any{"database": map[string]any{"ok": false, "error": err.Error()}}
		util.WriteJSON(w, http.StatusServiceUnavailable, ready)
		return
	}
	ready["status"] = "ready"
	ready["components"] = map[string]any{"database": map[string]any{"ok": true}}
	util.WriteJSON(w, http.StatusOK, ready)
}
