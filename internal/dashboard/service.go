package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/internal/workorder"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	policy *workorder.Policy
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, policy *workorder.Policy, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		policy: policy,
		loc:    loc,
		logger: logger.With("component", "dashboard"),
		now:    time.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Authorize checks that the caller may see the dashboard. Handlers call it
// before parsing any request input.
func (s *Service) Authorize(tc tenant.Context) error {
	return s.policy.Authorize(tc, workorder.ObjectDashboard, nil)
}

// ParseRange parses from/to in the service's time zone relative to now.
func (s *Service) ParseRange(from, to string) (Range, error) {
	return ParseRange(from, to, s.loc, s.now())
}

// Snapshot recomputes the dashboard for the caller's organization. Owner/admin only.
func (s *Service) Snapshot(ctx context.Context, tc tenant.Context, r Range) (*Snapshot, error) {
	if err := s.Authorize(tc); err != nil {
		return nil, err
	}

	var rows []Row
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("status", "created_at", "closed_at").
		Where("organization_id = ?", tc.OrganizationID()).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading dashboard rows: %w", err)
	}

	snap := Compute(rows, r)
	s.logger.Debug("dashboard computed",
		"org", tc.Organization.Slug,
		"rows", len(rows),
		"days", len(snap.Series),
	)
	return &snap, nil
}
