package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"matchmaker/internal/models"
	"matchmaker/internal/store"
)

const auditListLimit = 20

const (
	auditApprove = "account.approve"
	auditReport  = "report.file"
)

type AdminOverview struct {
	Pending []models.Account
	Reports []models.Report
	Audit   []models.AuditEntry
}

func (s *Service) ListPending(ctx context.Context, admin *models.Account) ([]models.Account, error) {
	if !RequireAdmin(admin) {
		return nil, ErrForbidden
	}
	return s.st.ListPending(ctx)
}

func (s *Service) ListReports(ctx context.Context, admin *models.Account) ([]models.Report, error) {
	if !RequireAdmin(admin) {
		return nil, ErrForbidden
	}
	return s.st.ListReports(ctx)
}

func (s *Service) AdminOverview(ctx context.Context, admin *models.Account) (AdminOverview, error) {
	pending, err := s.ListPending(ctx, admin)
	if err != nil {
		return AdminOverview{}, err
	}
	reports, err := s.ListReports(ctx, admin)
	if err != nil {
		return AdminOverview{}, err
	}
	audit, err := s.st.ListAudit(ctx, auditListLimit)
	if err != nil {
		return AdminOverview{}, err
	}
	return AdminOverview{Pending: pending, Reports: reports, Audit: audit}, nil
}

// FileReport records a moderation report against targetID. Reporting one's
// own account is allowed.
func (s *Service) FileReport(ctx context.Context, reporter *models.Account, targetID, reason string) (models.Report, error) {
	if reporter == nil {
		return models.Report{}, ErrInvalidSession
	}
	if !RequireApproved(reporter) {
		return models.Report{}, ErrForbidden
	}
	reason = truncateRunes(strings.TrimSpace(reason), MaxReportReason)
	if reason == "" {
		return models.Report{}, invalid("reason", "a reason is required")
	}
	if _, err := s.st.GetAccountByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Report{}, ErrTargetNotFound
		}
		return models.Report{}, err
	}
	r, err := s.st.CreateReport(ctx, targetID, reporter.ID, reason)
	if err != nil {
		return models.Report{}, err
	}
	_ = s.st.InsertAudit(ctx, reporter.ID, auditReport, targetID)
	log.Printf("report filed id=%d target=%s reporter=%s", r.ID, targetID, reporter.ID)
	return r, nil
}

// ApproveAccount lets an admin approve a pending account. Approving an
// already approved account returns it unchanged.
func (s *Service) ApproveAccount(ctx context.Context, admin *models.Account, targetID string) (models.Account, error) {
	if !RequireAdmin(admin) {
		return models.Account{}, ErrForbidden
	}
	target, err := s.st.GetAccountByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	if target.Approved {
		return target, nil
	}
	approved, err := s.st.ApproveAccount(ctx, targetID, admin.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	if err := s.st.InsertAudit(ctx, admin.ID, auditApprove, approved.ID); err != nil {
		log.Printf("audit insert failed action=%s target=%s err=%q", auditApprove, approved.ID, err.Error())
	}
	if err := s.sender.SendApprovalNotice(ctx, approved.Email, approved.DisplayName); err != nil {
		log.Printf("approval notice failed target=%s err=%q", approved.ID, err.Error())
	}
	log.Printf("account approved id=%s by=%s", approved.ID, admin.ID)
	return approved, nil
}

// DashboardProfiles lists the approved members a viewer may browse: never
// admins and never the viewer.
func (s *Service) DashboardProfiles(ctx context.Context, viewer *models.Account) ([]models.Account, error) {
	if !RequireApproved(viewer) {
		return nil, ErrForbidden
	}
	return s.st.ListApprovedProfiles(ctx, viewer.ID)
}

func (s *Service) PublicProfiles(ctx context.Context) ([]models.Account, error) {
	return s.st.ListApprovedProfiles(ctx, "")
}
