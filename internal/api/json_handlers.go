package api

import (
	"errors"
	"log"
	"net/http"

	"matchmaker/internal/middleware"
	"matchmaker/internal/models"
	"matchmaker/internal/service"
	"matchmaker/internal/util"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	Approved    bool   `json:"approved"`
}

type profileItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Age         *int   `json:"age"`
	Gender      string `json:"gender"`
	City        string `json:"city"`
	Bio         string `json:"bio"`
}

// APILogin checks credentials and returns the account summary. It does not
// open a session.
func (h *Handlers) APILogin(w http.ResponseWriter, r *http.Request) {
	rid := middleware.RequestID(r.Context())
	var req loginRequest
	if err := util.DecodeJSON(w, r, maxFormBytes, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", rid)
		return
	}
	a, err := h.svc.CheckCredentials(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		util.WriteJSON(w, http.StatusOK, loginResponse{
			ID: a.ID, Email: a.Email, DisplayName: a.DisplayName, IsAdmin: a.IsAdmin, Approved: a.Approved,
		})
	case errors.Is(err, service.ErrPendingApproval):
		util.WriteError(w, http.StatusForbidden, "pending_approval", err.Error(), rid)
	case errors.Is(err, service.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), rid)
	default:
		log.Printf("api login failed request_id=%s err=%q", rid, err.Error())
		util.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", rid)
	}
}

func (h *Handlers) APIProfiles(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.PublicProfiles(r.Context())
	if err != nil {
		rid := middleware.RequestID(r.Context())
		log.Printf("list profiles failed request_id=%s err=%q", rid, err.Error())
		util.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", rid)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"items": toProfileItems(accounts)})
}

func toProfileItems(accounts []models.Account) []profileItem {
	items := make([]profileItem, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, profileItem{
			ID: a.ID, DisplayName: a.DisplayName, Age: a.Age, Gender: a.Gender, City: a.City, Bio: a.Bio,
		})
	}
	return items
}
