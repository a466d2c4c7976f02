package workorder

import (
	"context"

	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
)

// ListReports lists completed reports, most recently closed first by default.
func (s *Service) ListReports(ctx context.Context, tc tenant.Context, p ListParams) (*Page, error) {
	return s.listReports(ctx, tc, p, true, ReportSorts)
}

// GetReport returns a completed report with its attachments. Orders that are
// still open are not reports and yield ErrNotFound.
func (s *Service) GetReport(ctx context.Context, tc tenant.Context, id uint) (*ReportView, error) {
	report, err := loadReport(ctx, s.db, tc, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.StatusCompleted {
		return nil, ErrNotFound
	}
	if err := s.policy.Authorize(tc, ObjectReport, report.MemberID); err != nil {
		return nil, err
	}
	return s.reportView(report, true)
}
