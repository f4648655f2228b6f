package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"matchmaker/internal/db"
	"matchmaker/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrDuplicateEmail = errors.New("email already registered")

const accountCols = `id,email,password_hash,display_name,age,gender,city,bio,approved,is_admin,created_at,approved_at,approved_by,last_login_at`

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func New(conn *sql.DB, dialect db.Dialect) *Store { return &Store{db: conn, dialect: dialect} }

func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount inserts a new account. Admin accounts are stored approved;
// everyone else starts pending.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string, p models.Profile, isAdmin bool) (models.Account, error) {
	now := time.Now().UTC()
	a := models.Account{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Profile:      p,
		Approved:     isAdmin,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
	}
	var approvedAt any
	if isAdmin {
		approvedAt = now
		a.ApprovedAt = &now
	}
	var age any
	if p.Age != nil {
		age = *p.Age
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO accounts(id,email,password_hash,display_name,age,gender,city,bio,approved,is_admin,created_at,approved_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`),
		a.ID, a.Email, a.PasswordHash, p.DisplayName, age, p.Gender, p.City, p.Bio, a.Approved, a.IsAdmin, a.CreatedAt, approvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, ErrDuplicateEmail
		}
		return models.Account{}, err
	}
	return a, nil
}

// EnsureAdmin seeds the bootstrap admin. It reports whether an account was
// created; an existing account with the same email is left untouched.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash, displayName string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || passwordHash == "" {
		return false, nil
	}
	_, err := s.GetAccountByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = s.CreateAccount(ctx, email, passwordHash, models.Profile{DisplayName: displayName}, true)
	if errors.Is(err, ErrDuplicateEmail) {
		// Another instance seeded it first.
		return false, nil
	}
	return err == nil, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	var age sql.NullInt64
	var approvedAt, lastLogin sql.NullTime
	var approvedBy sql.NullString
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &age, &a.Gender, &a.City, &a.Bio,
		&a.Approved, &a.IsAdmin, &a.CreatedAt, &approvedAt, &approvedBy, &lastLogin); err != nil {
		return models.Account{}, err
	}
	if age.Valid {
		v := int(age.Int64)
		a.Age = &v
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		a.ApprovedAt = &t
	}
	if approvedBy.Valid {
		v := approvedBy.String
		a.ApprovedBy = &v
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return a, nil
}

func (s *Store) getAccount(ctx context.Context, where string, arg any) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountCols+` FROM accounts WHERE `+where+`=?`), arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrNotFound
	}
	return a, err
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.getAccount(ctx, "email", normalizeEmail(email))
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (models.Account, error) {
	return s.getAccount(ctx, "id", id)
}

// ApproveAccount marks the account approved. Approving twice keeps the first
// approval timestamp and approver.
func (s *Store) ApproveAccount(ctx context.Context, id, approverID string) (models.Account, error) {
	a, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if a.Approved {
		return a, nil
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		s.q(`UPDATE accounts SET approved=?, approved_at=?, approved_by=? WHERE id=? AND approved=?`),
		true, now, approverID, id, false,
	); err != nil {
		return models.Account{}, err
	}
	return s.GetAccountByID(ctx, id)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE accounts SET last_login_at=? WHERE id=?`), at, id)
	return err
}

func (s *Store) listAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListPending returns unapproved non-admin accounts, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]models.Account, error) {
	return s.listAccounts(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE approved=? AND is_admin=? ORDER BY created_at ASC, id ASC`,
		false, false,
	)
}

// ListApprovedProfiles returns approved non-admin accounts other than excludeID.
func (s *Store) ListApprovedProfiles(ctx context.Context, excludeID string) ([]models.Account, error) {
	return s.listAccounts(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE approved=? AND is_admin=? AND id<>? ORDER BY created_at ASC, id ASC`,
		true, false, excludeID,
	)
}

func (s *Store) CreateReport(ctx context.Context, targetID, reporterID, reason string) (models.Report, error) {
	r := models.Report{TargetID: targetID, ReporterID: reporterID, Reason: reason, CreatedAt: time.Now().UTC()}
	const insert = `INSERT INTO reports(target_id,reporter_id,reason,created_at) VALUES(?,?,?,?)`
	if s.dialect == db.Postgres {
		err := s.db.QueryRowContext(ctx, s.q(insert+` RETURNING id`), r.TargetID, r.ReporterID, r.Reason, r.CreatedAt).Scan(&r.ID)
		return r, err
	}
	res, err := s.db.ExecContext(ctx, s.q(insert), r.TargetID, r.ReporterID, r.Reason, r.CreatedAt)
	if err != nil {
		return models.Report{}, err
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return models.Report{}, err
	}
	return r, nil
}

// ListReports returns all reports, most recent first, with the display names
// of both parties resolved.
func (s *Store) ListReports(ctx context.Context) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT r.id,r.target_id,r.reporter_id,r.reason,r.created_at,t.display_name,p.display_name
		 FROM reports r
		 LEFT JOIN accounts t ON t.id = r.target_id
		 LEFT JOIN accounts p ON p.id = r.reporter_id
		 ORDER BY r.id DESC`,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Report{}
	for rows.Next() {
		var r models.Report
		var target, reporter sql.NullString
		if err := rows.Scan(&r.ID, &r.TargetID, &r.ReporterID, &r.Reason, &r.CreatedAt, &target, &reporter); err != nil {
			return nil, err
		}
		r.TargetName = target.String
		r.ReporterName = reporter.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountReports(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM reports`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO sessions(id,account_id,token_hash,expires_at,created_at) VALUES(?,?,?,?,?)`),
		sess.ID, sess.AccountID, sess.TokenHash, sess.ExpiresAt, sess.CreatedAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	var revoked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id,account_id,token_hash,expires_at,created_at,revoked_at FROM sessions WHERE token_hash=?`),
		tokenHash,
	).Scan(&sess.ID, &sess.AccountID, &sess.TokenHash, &sess.ExpiresAt, &sess.CreatedAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE sessions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`), now, id)
	return err
}

// DeleteExpiredSessions removes sessions that expired or were revoked before the cutoff.
func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM sessions WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)`),
		before, before,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) InsertAudit(ctx context.Context, actorID, action, target string) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO admin_audit_log(id,actor_id,action,target,created_at) VALUES(?,?,?,?,?)`),
		uuid.NewString(), actorID, action, target, time.Now().UTC(),
	)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id,actor_id,action,target,created_at FROM admin_audit_log ORDER BY created_at DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AuditEntry, 0, limit)
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Target, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
