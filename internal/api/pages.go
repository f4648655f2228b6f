package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"log"
	"net/http"
	"time"

	"matchmaker/internal/middleware"
	"matchmaker/internal/models"
	"matchmaker/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookieName = "flash"

var pageNames = []string{"index.html", "register.html", "login.html", "dashboard.html", "admin.html", "error.html"}

type pageSet struct {
	byName map[string]*template.Template
}

func mustLoadPages() *pageSet {
	funcs := template.FuncMap{
		"when": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	}
	ps := &pageSet{byName: map[string]*template.Template{}}
	for _, name := range pageNames {
		ps.byName[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return ps
}

type pageData struct {
	Title    string
	Account  *models.Account
	State    string
	Flash    string
	Error    string
	Form     map[string]string
	Profiles []models.Account
	Overview service.AdminOverview
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.Account = middleware.Account(r.Context())
	data.State = service.StateOf(data.Account).String()
	data.Flash = h.popFlash(w, r)

	var buf bytes.Buffer
	if err := h.pages.byName[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("render failed page=%s request_id=%s err=%q", name, middleware.RequestID(r.Context()), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Printf("request failed op=%s request_id=%s err=%q", op, middleware.RequestID(r.Context()), err.Error())
	h.render(w, r, http.StatusInternalServerError, "error.html", pageData{Title: "Error", Error: "Something went wrong. Please try again."})
}

// redirectWithFlash stores msg for the next rendered page and redirects.
func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, msg string) {
	if msg != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookieSecure(r),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   60,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	h.expireCookie(w, r, flashCookieName)
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (h *Handlers) cookieSecure(r *http.Request) bool {
	if h.cfg.CookieSecure || r.TLS != nil {
		return true
	}
	return h.cfg.TrustProxy && r.Header.Get("X-Forwarded-Proto") == "https"
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cfg.SessionTTL().Seconds()),
	})
}

func (h *Handlers) expireCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(1, 0).UTC(),
	})
}
