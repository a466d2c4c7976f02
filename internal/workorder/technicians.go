package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const historyLimit = 100

func technicianScope(tc tenant.Context, p ListParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Member{}).
			Joins("JOIN users ON users.id = members.user_id").
			Where("members.organization_id = ? AND members.role = ?", tc.OrganizationID(), models.RoleMember)
		if p.Query != "" {
			// See reportScope for how LOWER differs between drivers.
			db = db.Where("LOWER(users.name) LIKE ? ESCAPE '\\'", likePattern(p.Query))
		}
		return db
	}
}

// ListTechnicians lists members with the technician role and their most recent open order.
func (s *Service) ListTechnicians(ctx context.Context, tc tenant.Context, p ListParams) (*TechnicianPage, error) {
	scope := technicianScope(tc, p)

	var members []models.Member
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Scopes(scope).
			Select("members.*").
			Preload("User").
			Order(p.OrderBy(TechnicianSorts)).
			Limit(p.Limit).
			Offset(p.Offset).
			Find(&members).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Scopes(scope).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("listing technicians: %w", err)
	}

	latest, err := s.latestOpenOrders(ctx, tc, members)
	if err != nil {
		return nil, err
	}

	page := &TechnicianPage{Technicians: make([]TechnicianView, 0, len(members)), Total: total, Limit: p.Limit, Offset: p.Offset}
	for i := range members {
		v := technicianView(&members[i])
		v.LatestOrder = latest[members[i].ID]
		page.Technicians = append(page.Technicians, v)
	}
	return page, nil
}

func (s *Service) latestOpenOrders(ctx context.Context, tc tenant.Context, members []models.Member) (map[uuid.UUID]*OrderSummary, error) {
	out := make(map[uuid.UUID]*OrderSummary, len(members))
	if len(members) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	var rows []models.Report
	if err := s.db.WithContext(ctx).
		Select("id", "title", "status", "created_at", "member_id").
		Where("organization_id = ? AND member_id IN ? AND status <> ?", tc.OrganizationID(), ids, models.StatusCompleted).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading open orders: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		if r.MemberID == nil {
			continue
		}
		if _, ok := out[*r.MemberID]; ok {
			continue
		}
		summary := orderSummary(r)
		out[*r.MemberID] = &summary
	}
	return out, nil
}

// GetTechnician returns a technician with their open and closed order history.
// Members may only view themselves.
func (s *Service) GetTechnician(ctx context.Context, tc tenant.Context, memberID uuid.UUID) (*TechnicianDetail, error) {
	var member models.Member
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND organization_id = ?", memberID, tc.OrganizationID()).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading technician: %w", err)
	}

	if err := s.policy.Authorize(tc, ObjectTechnician, &member.ID); err != nil {
		return nil, err
	}

	var open, closed []models.Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("organization_id = ? AND member_id = ? AND status <> ?", tc.OrganizationID(), member.ID, models.StatusCompleted).
			Order("created_at desc").
			Limit(historyLimit).
			Find(&open).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("organization_id = ? AND member_id = ? AND status = ?", tc.OrganizationID(), member.ID, models.StatusCompleted).
			Order("closed_at desc").
			Limit(historyLimit).
			Find(&closed).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading technician history: %w", err)
	}

	detail := &TechnicianDetail{
		Technician:    technicianView(&member),
		OpenHistory:   make([]OrderSummary, 0, len(open)),
		ClosedHistory: make([]OrderSummary, 0, len(closed)),
	}
	for i := range open {
		detail.OpenHistory = append(detail.OpenHistory, orderSummary(&open[i]))
	}
	for i := range closed {
		detail.ClosedHistory = append(detail.ClosedHistory, orderSummary(&closed[i]))
	}
	if len(detail.OpenHistory) > 0 {
		latest := detail.OpenHistory[0]
		detail.Technician.LatestOrder = &latest
	}
	return detail, nil
}

// MemberOptions lists technicians by name for assignment pickers. Owner/admin only.
func (s *Service) MemberOptions(ctx context.Context, tc tenant.Context, name string) ([]MemberOption, error) {
	if err := s.policy.Authorize(tc, ObjectMember, nil); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Model(&models.Member{}).
		Select("members.id AS id, users.name AS name, users.email AS email").
		Joins("JOIN users ON users.id = members.user_id").
		Where("members.organization_id = ? AND members.role = ?", tc.OrganizationID(), models.RoleMember)
	if name = strings.TrimSpace(name); name != "" {
		q = q.Where("LOWER(users.name) LIKE ? ESCAPE '\\'", likePattern(name))
	}

	var out []MemberOption
	if err := q.Order("users.name asc").Limit(MaxLimit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("listing member options: %w", err)
	}
	if out == nil {
		out = []MemberOption{}
	}
	return out, nil
}

func technicianView(m *models.Member) TechnicianView {
	return TechnicianView{
		ID:     m.ID,
		Role:   m.Role,
		UserID: m.UserID,
		User:   userSummary(m.User),
	}
}
