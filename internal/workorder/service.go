package workorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"gorm.io/gorm"
)

// SLAWindow is the maximum time between creation and completion for an order
// to count as resolved on time.
const SLAWindow = 72 * time.Hour

// MetSLA reports whether an order closed at closedAt was resolved within SLAWindow.
func MetSLA(createdAt, closedAt time.Time) bool {
	return closedAt.Sub(createdAt) <= SLAWindow
}

// CompletionNotifier is told about orders that just moved to COMPLETED.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, orgID uuid.UUID, reportID uint) error
}

// Service implements order, report, correction, message and technician
// operations inside a single organization.
type Service struct {
	db       *gorm.DB
	policy   *Policy
	sealer   BlobSealer
	notifier CompletionNotifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithSealer(sealer BlobSealer) Option {
	return func(s *Service) { s.sealer = sealer }
}

func WithNotifier(n CompletionNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, policy *Policy, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:     db,
		policy: policy,
		logger: logger.With("component", "workorder"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() *Policy {
	return s.policy
}

// loadReport fetches a report inside the caller's organization. Reports of
// other organizations are indistinguishable from missing ones.
func loadReport(ctx context.Context, db *gorm.DB, tc tenant.Context, id uint) (*models.Report, error) {
	var report models.Report
	err := db.WithContext(ctx).
		Preload("Assignee.User").
		Where("id = ? AND organization_id = ?", id, tc.OrganizationID()).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading report %d: %w", id, err)
	}
	return &report, nil
}

// memberInOrg verifies that memberID belongs to the caller's organization.
func memberInOrg(ctx context.Context, db *gorm.DB, tc tenant.Context, memberID uuid.UUID) error {
	var count int64
	err := db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ? AND organization_id = ?", memberID, tc.OrganizationID()).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking assignee: %w", err)
	}
	if count == 0 {
		return NewValidationError("assigneeId", "Assignee must be a member of this organization")
	}
	return nil
}

func (s *Service) notifyCompleted(ctx context.Context, tc tenant.Context, reportID uint) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCompleted(ctx, tc.OrganizationID(), reportID); err != nil {
		s.logger.Warn("failed to enqueue completion", "report_id", reportID, "error", err)
	}
}
