package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"gorm.io/gorm"
)

// ListCorrections returns a report's corrections in creation order.
// Owners, admins and the report's assignee may read them.
func (s *Service) ListCorrections(ctx context.Context, tc tenant.Context, reportID uint) ([]CorrectionView, error) {
	report, err := loadReport(ctx, s.db, tc, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectCorrection, report.MemberID); err != nil {
		return nil, err
	}

	var rows []models.Correction
	if err := s.db.WithContext(ctx).
		Preload("Member.User").
		Where("report_id = ?", report.ID).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing corrections: %w", err)
	}

	out := make([]CorrectionView, 0, len(rows))
	for i := range rows {
		out = append(out, correctionView(&rows[i]))
	}
	return out, nil
}

// CreateCorrection adds a correction authored by the caller.
func (s *Service) CreateCorrection(ctx context.Context, tc tenant.Context, reportID uint, content string) (*CorrectionView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewValidationError("content", "Content is required")
	}

	report, err := loadReport(ctx, s.db, tc, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectCorrection, report.MemberID); err != nil {
		return nil, err
	}

	correction := models.Correction{
		ReportID: report.ID,
		MemberID: tc.MemberID(),
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(&correction).Error; err != nil {
		return nil, fmt.Errorf("creating correction: %w", err)
	}
	correction.Member = tc.Member

	view := correctionView(&correction)
	return &view, nil
}

// UpdateCorrection edits a correction's content. Only owners, admins and the
// correction's author may edit it. A nil or identical content is a no-op.
func (s *Service) UpdateCorrection(ctx context.Context, tc tenant.Context, id string, content *string) (*CorrectionResult, error) {
	var correction models.Correction
	err := s.db.WithContext(ctx).
		Preload("Member.User").
		Joins("JOIN reports ON reports.id = corrections.report_id").
		Where("corrections.id = ? AND reports.organization_id = ?", id, tc.OrganizationID()).
		First(&correction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading correction: %w", err)
	}

	if err := s.policy.Authorize(tc, ObjectCorrection, &correction.MemberID); err != nil {
		return nil, err
	}

	if content == nil {
		view := correctionView(&correction)
		return &CorrectionResult{Correction: &view, Unchanged: true}, nil
	}
	next := strings.TrimSpace(*content)
	if next == "" {
		return nil, NewValidationError("content", "Content is required")
	}
	if next == correction.Content {
		view := correctionView(&correction)
		return &CorrectionResult{Correction: &view, Unchanged: true}, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&correction).
		Select("content").
		Updates(models.Correction{Content: next}).Error; err != nil {
		return nil, fmt.Errorf("updating correction: %w", err)
	}
	correction.Content = next

	view := correctionView(&correction)
	return &CorrectionResult{Correction: &view}, nil
}
