package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CreateOrderInput struct {
	Title      string
	Content    string
	AssigneeID *uuid.UUID
}

// reportScope filters reports to the caller's organization and visibility.
// Callers without the manage grant only ever see reports assigned to themselves.
//
// LOWER folds ASCII only on SQLite; Postgres folds the full Unicode range, so
// "ÁREA" matches "área" in production but not under the SQLite test driver.
func reportScope(tc tenant.Context, p ListParams, completed, manager bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Report{}).Where("reports.organization_id = ?", tc.OrganizationID())
		if completed {
			db = db.Where("reports.status = ?", models.StatusCompleted)
		} else {
			db = db.Where("reports.status <> ?", models.StatusCompleted)
		}
		if !manager {
			db = db.Where("reports.member_id = ?", tc.MemberID())
		}
		if p.Query != "" {
			like := likePattern(p.Query)
			db = db.Where("(LOWER(reports.title) LIKE ? ESCAPE '\\' OR LOWER(reports.content) LIKE ? ESCAPE '\\')", like, like)
		}
		return db
	}
}

func (s *Service) listReports(ctx context.Context, tc tenant.Context, p ListParams, completed bool, spec SortSpec) (*Page, error) {
	scope := reportScope(tc, p, completed, s.policy.CanManage(tc, ObjectReport))

	var rows []models.Report
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Scopes(scope).
			Select("reports.*").
			Joins("LEFT JOIN members ON members.id = reports.member_id").
			Joins("LEFT JOIN users ON users.id = members.user_id").
			Preload("Assignee.User").
			Order(p.OrderBy(spec)).
			Limit(p.Limit).
			Offset(p.Offset).
			Find(&rows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Scopes(scope).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	page := &Page{Reports: make([]ReportView, 0, len(rows)), Total: total, Limit: p.Limit, Offset: p.Offset}
	for i := range rows {
		v, err := s.reportView(&rows[i], false)
		if err != nil {
			return nil, err
		}
		page.Reports = append(page.Reports, *v)
	}
	return page, nil
}

// ListOrders lists open (non-completed) orders.
func (s *Service) ListOrders(ctx context.Context, tc tenant.Context, p ListParams) (*Page, error) {
	return s.listReports(ctx, tc, p, false, OrderSorts)
}

func (s *Service) GetOrder(ctx context.Context, tc tenant.Context, id uint) (*ReportView, error) {
	report, err := loadReport(ctx, s.db, tc, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectReport, report.MemberID); err != nil {
		return nil, err
	}
	return s.reportView(report, true)
}

// CreateOrder creates a PENDING order. Any member of the organization may
// create one, but only managers pick the assignee: everyone else gets the
// order assigned to themselves.
func (s *Service) CreateOrder(ctx context.Context, tc tenant.Context, input CreateOrderInput) (*ReportView, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, NewValidationError("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, NewValidationError("title", fmt.Sprintf("Title must be at most %d characters", maxTitleLength))
	}
	assignee := input.AssigneeID
	if !s.policy.CanManage(tc, ObjectReport) {
		self := tc.MemberID()
		if assignee != nil && *assignee != self {
			return nil, ErrForbidden
		}
		assignee = &self
	}
	if assignee != nil {
		if err := memberInOrg(ctx, s.db, tc, *assignee); err != nil {
			return nil, err
		}
	}

	report := models.Report{
		OrganizationID: tc.OrganizationID(),
		Title:          title,
		Content:        strings.TrimSpace(input.Content),
		Status:         models.StatusPending,
		MemberID:       assignee,
	}

	actor := tc.MemberID()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		events := []models.ReportEvent{{
			ReportID:       report.ID,
			OrganizationID: report.OrganizationID,
			MemberID:       &actor,
			Kind:           models.EventCreated,
			ToStatus:       models.StatusPending,
		}}
		if report.MemberID != nil {
			events = append(events, models.ReportEvent{
				ReportID:       report.ID,
				OrganizationID: report.OrganizationID,
				MemberID:       &actor,
				Kind:           models.EventAssigned,
				Note:           report.MemberID.String(),
			})
		}
		return tx.Create(&events).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	metrics.ObserveOrderCreated()
	s.logger.Info("order created", "org", tc.Organization.Slug, "report_id", report.ID)

	created, err := loadReport(ctx, s.db, tc, report.ID)
	if err != nil {
		return nil, err
	}
	return s.reportView(created, true)
}

// UpdateOrder applies a partial update. When nothing differs from the stored
// row the current order is returned with Unchanged set and no write is issued.
func (s *Service) UpdateOrder(ctx context.Context, tc tenant.Context, id uint, patch OrderPatch) (*UpdateResult, error) {
	current, err := loadReport(ctx, s.db, tc, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectReport, current.MemberID); err != nil {
		return nil, err
	}

	manager := s.policy.CanManage(tc, ObjectReport)
	cs, err := PlanUpdate(current, patch, manager, s.now(), s.sealer)
	if err != nil {
		return nil, err
	}
	if cs.Assigned && !manager {
		return nil, ErrForbidden
	}
	if cs.Assigned && cs.Report.MemberID != nil {
		if err := memberInOrg(ctx, s.db, tc, *cs.Report.MemberID); err != nil {
			return nil, err
		}
	}

	if cs.Empty() {
		view, err := s.reportView(current, true)
		if err != nil {
			return nil, err
		}
		return &UpdateResult{Report: view, Unchanged: true}, nil
	}

	actor := tc.MemberID()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&cs.Report).
			Where("organization_id = ?", tc.OrganizationID()).
			Select(cs.Columns).
			Updates(&cs.Report)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var events []models.ReportEvent
		if cs.StatusChanged() {
			events = append(events, models.ReportEvent{
				ReportID:       current.ID,
				OrganizationID: current.OrganizationID,
				MemberID:       &actor,
				Kind:           models.EventStatusChanged,
				FromStatus:     cs.From,
				ToStatus:       cs.To,
			})
		}
		if cs.Assigned {
			note := ""
			if cs.Report.MemberID != nil {
				note = cs.Report.MemberID.String()
			}
			events = append(events, models.ReportEvent{
				ReportID:       current.ID,
				OrganizationID: current.OrganizationID,
				MemberID:       &actor,
				Kind:           models.EventAssigned,
				Note:           note,
			})
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating order %d: %w", id, err)
	}

	if cs.StatusChanged() {
		metrics.ObserveTransition(string(cs.From), string(cs.To))
		s.logger.Info("order status changed",
			"org", tc.Organization.Slug,
			"report_id", id,
			"from", cs.From,
			"to", cs.To,
		)
	}
	if cs.Completed() {
		s.notifyCompleted(ctx, tc, id)
	}

	updated, err := loadReport(ctx, s.db, tc, id)
	if err != nil {
		return nil, err
	}
	view, err := s.reportView(updated, true)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Report: view}, nil
}

// ListEvents returns an order's activity timeline, oldest first.
func (s *Service) ListEvents(ctx context.Context, tc tenant.Context, id uint) ([]EventView, error) {
	report, err := loadReport(ctx, s.db, tc, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(tc, ObjectReport, report.MemberID); err != nil {
		return nil, err
	}

	var events []models.ReportEvent
	if err := s.db.WithContext(ctx).
		Where("report_id = ? AND organization_id = ?", report.ID, tc.OrganizationID()).
		Order("created_at asc").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	out := make([]EventView, 0, len(events))
	for i := range events {
		out = append(out, eventView(&events[i]))
	}
	return out, nil
}
