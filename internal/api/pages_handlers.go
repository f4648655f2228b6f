package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"matchmaker/internal/middleware"
	"matchmaker/internal/service"
)

var registerFields = []string{"email", "display_name", "age", "gender", "city", "bio"}

func (h *Handlers) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", pageData{Title: "Welcome"})
}

func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", pageData{Title: "Register"})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	form := map[string]string{}
	for _, f := range registerFields {
		form[f] = r.PostFormValue(f)
	}
	// Any posted role field is ignored.
	_, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       form["email"],
		Password:    r.PostFormValue("password"),
		DisplayName: form["display_name"],
		Age:         form["age"],
		Gender:      form["gender"],
		City:        form["city"],
		Bio:         form["bio"],
	})
	var verr *service.ValidationError
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/login", "Registration received. An admin will review your profile before you can log in.")
	case errors.As(err, &verr):
		h.render(w, r, http.StatusBadRequest, "register.html", pageData{Title: "Register", Error: verr.Message, Form: form})
	case errors.Is(err, service.ErrDuplicateEmail):
		h.render(w, r, http.StatusConflict, "register.html", pageData{Title: "Register", Error: "That email is already registered.", Form: form})
	default:
		h.serverError(w, r, "register", err)
	}
}

func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if service.RequireApproved(middleware.Account(r.Context())) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", pageData{Title: "Log in"})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := r.PostFormValue("email")
	form := map[string]string{"email": email}
	token, _, err := h.svc.Login(r.Context(), email, r.PostFormValue("password"))
	switch {
	case err == nil:
		h.setSessionCookie(w, r, token)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case errors.Is(err, service.ErrPendingApproval):
		h.render(w, r, http.StatusForbidden, "login.html", pageData{Title: "Log in", Error: "Your account is awaiting admin approval.", Form: form})
	case errors.Is(err, service.ErrInvalidCredentials):
		h.render(w, r, http.StatusUnauthorized, "login.html", pageData{Title: "Log in", Error: "Invalid email or password.", Form: form})
	default:
		h.serverError(w, r, "login", err)
	}
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.SessionCookieName); err == nil && c.Value != "" {
		if err := h.svc.Logout(r.Context(), c.Value); err != nil {
			h.serverError(w, r, "logout", err)
			return
		}
	}
	h.expireCookie(w, r, h.cfg.SessionCookieName)
	h.redirectWithFlash(w, r, "/login", "You have been logged out.")
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.DashboardProfiles(r.Context(), middleware.Account(r.Context()))
	if err != nil {
		h.serverError(w, r, "dashboard", err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard.html", pageData{Title: "Dashboard", Profiles: profiles})
}

func (h *Handlers) FileReport(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	_, err := h.svc.FileReport(r.Context(), middleware.Account(r.Context()), chi.URLParam(r, "id"), r.PostFormValue("reason"))
	var verr *service.ValidationError
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/dashboard", "Thank you. The report was sent to the moderators.")
	case errors.As(err, &verr):
		h.redirectWithFlash(w, r, "/dashboard", verr.Message)
	case errors.Is(err, service.ErrTargetNotFound):
		h.redirectWithFlash(w, r, "/dashboard", "That profile does not exist.")
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInvalidSession):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		h.serverError(w, r, "report", err)
	}
}

func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.AdminOverview(r.Context(), middleware.Account(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		h.serverError(w, r, "admin", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin.html", pageData{Title: "Moderation", Overview: overview})
}

func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.ApproveAccount(r.Context(), middleware.Account(r.Context()), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/admin", "Approved "+a.DisplayName+".")
	case errors.Is(err, service.ErrNotFound):
		h.redirectWithFlash(w, r, "/admin", "That account does not exist.")
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		h.serverError(w, r, "approve", err)
	}
}

func (h *Handlers) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "error.html", pageData{Title: "Bad request", Error: "The form could not be read."})
		return false
	}
	return true
}
