package models

import "time"

// Profile holds the optional attributes an account shows to other members.
type Profile struct {
	DisplayName string
	Age         *int
	Gender      string
	City        string
	Bio         string
}

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Profile
	Approved    bool
	IsAdmin     bool
	CreatedAt   time.Time
	ApprovedAt  *time.Time
	ApprovedBy  *string
	LastLoginAt *time.Time
}

// CanViewProtected reports whether the account may reach approved-only views.
func (a Account) CanViewProtected() bool {
	return a.Approved || a.IsAdmin
}

type Report struct {
	ID         int64     `json:"id"`
	TargetID   string    `json:"target_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`

	TargetName   string `json:"target_name,omitempty"`
	ReporterName string `json:"reporter_name,omitempty"`
}

type Session struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}
