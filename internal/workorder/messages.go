package workorder

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
)

const maxTags = 10

func (s *Service) ListMessages(ctx context.Context, tc tenant.Context, reportID uint) ([]MessageView, error) {
	report, err := loadReport(ctx, s.db, tc, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectMessage, report.MemberID); err != nil {
		return nil, err
	}

	var rows []models.Message
	if err := s.db.WithContext(ctx).
		Preload("Member.User").
		Where("report_id = ?", report.ID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	out := make([]MessageView, 0, len(rows))
	for i := range rows {
		out = append(out, messageView(&rows[i]))
	}
	return out, nil
}

// PostMessage appends a message to an order.
func (s *Service) PostMessage(ctx context.Context, tc tenant.Context, reportID uint, text string, tags []string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidationError("text", "Message text is required")
	}
	tags = cleanTags(tags)
	if len(tags) > maxTags {
		return nil, NewValidationError("tags", fmt.Sprintf("At most %d tags are allowed", maxTags))
	}

	report, err := loadReport(ctx, s.db, tc, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectMessage, report.MemberID); err != nil {
		return nil, err
	}

	msg := models.Message{
		ReportID: report.ID,
		MemberID: tc.MemberID(),
		Content:  text,
		Tags:     tags,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	msg.Member = tc.Member

	view := messageView(&msg)
	return &view, nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
