package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"matchmaker/internal/config"
	"matchmaker/internal/db"
	"matchmaker/internal/models"
	"matchmaker/internal/store"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) SendApprovalNotice(ctx context.Context, toEmail, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, toEmail)
	return r.err
}

func testConfig() config.Config {
	return config.Config{
		SecretKey:           "this_is_a_valid_long_secret_key_123456",
		SessionTTLHours:     24,
		SessionSweepMinutes: 15,
		PasswordMinLength:   8,
		PasswordMaxLength:   128,
	}
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingSender) {
	t.Helper()
	sqdb, dialect, err := db.Open("sqlite://"+filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.Migrate(context.Background(), sqdb, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(sqdb, dialect)
	sender := &recordingSender{}
	svc := New(testConfig(), st, st, sender)
	if err := svc.BootstrapAdmin(context.Background(), "admin@example.com", "AdminPass123"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	return svc, st, sender
}

func register(t *testing.T, svc *Service, email, password string) models.Account {
	t.Helper()
	a, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: password, DisplayName: strings.Split(email, "@")[0]})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return a
}

func adminAccount(t *testing.T, st *store.Store) *models.Account {
	t.Helper()
	a, err := st.GetAccountByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("load admin: %v", err)
	}
	return &a
}

func TestRegisterDistinctEmailsStartPending(t *testing.T) {
	svc, _, _ := newTestService(t)
	for i := 0; i < 5; i++ {
		a := register(t, svc, fmt.Sprintf("member%d@example.com", i), "Password123")
		if a.Approved || a.IsAdmin {
			t.Fatalf("expected pending non-admin, got %+v", a)
		}
		if StateOf(&a) != AuthenticatedPending {
			t.Fatalf("expected pending state, got %s", StateOf(&a))
		}
	}
}

func TestRegisterDuplicateEmailVariants(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "a@x.com", "Password123")
	for _, variant := range []string{"A@X.COM", "  a@x.com  ", "\tA@x.Com\n"} {
		_, err := svc.Register(context.Background(), RegisterInput{Email: variant, Password: "Password123", DisplayName: "dup"})
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Fatalf("variant %q: expected ErrDuplicateEmail, got %v", variant, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing email", RegisterInput{Password: "Password123", DisplayName: "x"}, "email"},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "Password123", DisplayName: "x"}, "email"},
		{"short password", RegisterInput{Email: "p@x.com", Password: "short", DisplayName: "x"}, "password"},
		{"missing name", RegisterInput{Email: "n@x.com", Password: "Password123"}, "display_name"},
		{"underage", RegisterInput{Email: "u@x.com", Password: "Password123", DisplayName: "x", Age: "17"}, "age"},
		{"age not a number", RegisterInput{Email: "v@x.com", Password: "Password123", DisplayName: "x", Age: "old"}, "age"},
		{"gender", RegisterInput{Email: "g@x.com", Password: "Password123", DisplayName: "x", Gender: "robot"}, "gender"},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, verr.Field)
		}
	}
}

func TestRegisterKeepsProfileFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	a, err := svc.Register(context.Background(), RegisterInput{
		Email: "Meera@Example.com", Password: "Password123", DisplayName: " Meera ",
		Age: "31", Gender: "Female", City: "Kochi", Bio: strings.Repeat("b", MaxBio+50),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.Email != "meera@example.com" || a.DisplayName != "Meera" || a.Gender != "female" {
		t.Fatalf("unexpected normalization %+v", a)
	}
	if a.Age == nil || *a.Age != 31 {
		t.Fatalf("expected age 31, got %v", a.Age)
	}
	if len(a.Bio) != MaxBio {
		t.Fatalf("expected bio truncated to %d, got %d", MaxBio, len(a.Bio))
	}
}

func TestPendingAccountCannotLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "pending@example.com", "Password123")

	if _, _, err := svc.Login(context.Background(), "pending@example.com", "Password123"); !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("expected ErrPendingApproval with correct password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "pending@example.com", "WrongPassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials with wrong password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestApproveThenLoginAndResolve(t *testing.T) {
	svc, st, sender := newTestService(t)
	ctx := context.Background()
	a := register(t, svc, "a@x.com", "Password123")

	approved, err := svc.ApproveAccount(ctx, adminAccount(t, st), a.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Approved {
		t.Fatalf("expected approved account")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "a@x.com" {
		t.Fatalf("expected one approval notice, got %v", sender.sent)
	}

	token, acct, err := svc.Login(ctx, " A@X.com", "Password123")
	if err != nil {
		t.Fatalf("login after approval: %v", err)
	}
	if acct.ID != a.ID || token == "" {
		t.Fatalf("unexpected login result %q %+v", token, acct)
	}
	resolved, err := svc.Resolve(ctx, token)
	if err != nil || resolved.ID != a.ID {
		t.Fatalf("resolve: %+v err=%v", resolved, err)
	}
	if StateOf(&resolved) != AuthenticatedApproved {
		t.Fatalf("expected approved state, got %s", StateOf(&resolved))
	}
}

func TestApproveIsIdempotentAndNotifiesOnce(t *testing.T) {
	svc, st, sender := newTestService(t)
	ctx := context.Background()
	a := register(t, svc, "b@x.com", "Password123")
	admin := adminAccount(t, st)
	for i := 0; i < 2; i++ {
		if _, err := svc.ApproveAccount(ctx, admin, a.ID); err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected a single notice, got %d", len(sender.sent))
	}
}

func TestApproveSurvivesNotifyFailure(t *testing.T) {
	svc, st, sender := newTestService(t)
	sender.err = errors.New("smtp down")
	a := register(t, svc, "c@x.com", "Password123")
	got, err := svc.ApproveAccount(context.Background(), adminAccount(t, st), a.ID)
	if err != nil || !got.Approved {
		t.Fatalf("approval must not depend on notice delivery: %+v err=%v", got, err)
	}
}

func TestNonAdminApproveIsForbidden(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	member := register(t, svc, "member@x.com", "Password123")
	if _, err := svc.ApproveAccount(ctx, adminAccount(t, st), member.ID); err != nil {
		t.Fatalf("approve member: %v", err)
	}
	member, _ = st.GetAccountByID(ctx, member.ID)
	target := register(t, svc, "target@x.com", "Password123")

	if _, err := svc.ApproveAccount(ctx, &member, target.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	after, err := st.GetAccountByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("reload target: %v", err)
	}
	if after.Approved {
		t.Fatalf("target must remain unapproved")
	}
}

func TestApproveMissingAccount(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.ApproveAccount(context.Background(), adminAccount(t, st), "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	token, _, err := svc.Login(ctx, "admin@example.com", "AdminPass123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
	}
	if _, err := svc.Resolve(ctx, "garbage"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for unknown token, got %v", err)
	}
}

func TestExpiredSessionIsInvalid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	token, _, err := svc.Login(ctx, "admin@example.com", "AdminPass123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	svc.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected expired session to be invalid, got %v", err)
	}
	n, err := svc.SweepSessions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 swept session, got %d err=%v", n, err)
	}
}

func TestFileReport(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	admin := adminAccount(t, st)
	a := register(t, svc, "a@x.com", "Password123")
	b := register(t, svc, "b@x.com", "Password123")
	if _, err := svc.ApproveAccount(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	a, _ = st.GetAccountByID(ctx, a.ID)

	r, err := svc.FileReport(ctx, &a, b.ID, "  "+strings.Repeat("x", MaxReportReason+10))
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if len(r.Reason) != MaxReportReason {
		t.Fatalf("expected reason truncated to %d, got %d", MaxReportReason, len(r.Reason))
	}
	if _, err := svc.FileReport(ctx, &a, a.ID, "testing self report"); err != nil {
		t.Fatalf("self report should be accepted: %v", err)
	}

	reports, err := svc.ListReports(ctx, admin)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 2 || reports[0].TargetID != a.ID {
		t.Fatalf("expected most recent report first, got %+v", reports)
	}
}

func TestFileReportMissingTargetPersistsNothing(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	admin := adminAccount(t, st)
	if _, err := svc.FileReport(ctx, admin, "nope", "spam"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	n, err := st.CountReports(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected no reports persisted, got %d err=%v", n, err)
	}
}

func TestFileReportRequiresApprovedReporter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	pending := register(t, svc, "p@x.com", "Password123")
	other := register(t, svc, "o@x.com", "Password123")
	if _, err := svc.FileReport(ctx, &pending, other.ID, "spam"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for pending reporter, got %v", err)
	}
	if _, err := svc.FileReport(ctx, nil, other.ID, "spam"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for anonymous reporter, got %v", err)
	}
	var verr *ValidationError
	admin := models.Account{ID: "x", IsAdmin: true, Approved: true}
	if _, err := svc.FileReport(ctx, &admin, other.ID, "   "); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank reason, got %v", err)
	}
}

func TestAdminListsRequireAdmin(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	p := register(t, svc, "p@x.com", "Password123")

	overview, err := svc.AdminOverview(ctx, adminAccount(t, st))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Pending) != 1 || overview.Pending[0].ID != p.ID {
		t.Fatalf("expected pending member listed, got %+v", overview.Pending)
	}
	member := models.Account{ID: "m", Approved: true}
	if _, err := svc.ListPending(ctx, &member); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListReports(ctx, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous, got %v", err)
	}
}

func TestScenarioRegisterApproveDashboard(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	admin := adminAccount(t, st)

	other := register(t, svc, "other@x.com", "Password123")
	if _, err := svc.ApproveAccount(ctx, admin, other.ID); err != nil {
		t.Fatalf("approve other: %v", err)
	}

	a := register(t, svc, "a@x.com", "pw1-long-enough")
	if _, _, err := svc.Login(ctx, "a@x.com", "pw1-long-enough"); !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("expected pending approval, got %v", err)
	}
	if _, err := svc.ApproveAccount(ctx, admin, a.ID); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	token, _, err := svc.Login(ctx, "a@x.com", "pw1-long-enough")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	viewer, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	profiles, err := svc.DashboardProfiles(ctx, &viewer)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	for _, p := range profiles {
		if p.ID == viewer.ID || p.IsAdmin {
			t.Fatalf("dashboard must exclude self and admins, got %+v", p)
		}
	}
	if len(profiles) != 1 || profiles[0].ID != other.ID {
		t.Fatalf("expected only the other member, got %+v", profiles)
	}
}

func TestBootstrapAdminIsNoopForExistingAccount(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.BootstrapAdmin(ctx, "admin@example.com", "DifferentPass"); err != nil {
		t.Fatalf("bootstrap again: %v", err)
	}
	if _, _, err := svc.Login(ctx, "admin@example.com", "AdminPass123"); err != nil {
		t.Fatalf("first admin password must still work: %v", err)
	}
	if StateOf(adminAccount(t, st)) != AuthenticatedAdmin {
		t.Fatalf("expected admin state")
	}
}

func TestStateOf(t *testing.T) {
	if StateOf(nil) != Anonymous {
		t.Fatalf("nil account must be anonymous")
	}
	if !RequireApproved(&models.Account{IsAdmin: true}) {
		t.Fatalf("admin must pass RequireApproved")
	}
	if RequireApproved(&models.Account{}) || RequireAdmin(&models.Account{Approved: true}) {
		t.Fatalf("pending or plain accounts must not pass")
	}
}
