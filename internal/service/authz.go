package service

import "matchmaker/internal/models"

type AuthState int

const (
	Anonymous AuthState = iota
	AuthenticatedPending
	AuthenticatedApproved
	AuthenticatedAdmin
)

func (st AuthState) String() string {
	switch st {
	case AuthenticatedPending:
		return "pending"
	case AuthenticatedApproved:
		return "approved"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// StateOf classifies the account bound to a request; nil means no session.
func StateOf(a *models.Account) AuthState {
	switch {
	case a == nil:
		return Anonymous
	case a.IsAdmin:
		return AuthenticatedAdmin
	case a.Approved:
		return AuthenticatedApproved
	default:
		return AuthenticatedPending
	}
}

func RequireApproved(a *models.Account) bool {
	return a != nil && a.CanViewProtected()
}

func RequireAdmin(a *models.Account) bool {
	return a != nil && a.IsAdmin
}
