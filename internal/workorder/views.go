package workorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
)

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Image string    `json:"image,omitempty"`
}

type MemberSummary struct {
	ID   uuid.UUID         `json:"id"`
	Role models.MemberRole `json:"role"`
	User *UserSummary      `json:"user,omitempty"`
}

// ReportView is the API representation of a report. Binary fields are
// plaintext here and encode as base64 in JSON.
type ReportView struct {
	ID             uint                `json:"id"`
	OrganizationID uuid.UUID           `json:"organizationId"`
	Title          string              `json:"title"`
	Content        string              `json:"content"`
	Status         models.ReportStatus `json:"status"`
	MemberID       *uuid.UUID          `json:"memberId"`
	Assignee       *MemberSummary      `json:"assignee"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	ScheduledAt    *time.Time          `json:"scheduledAt"`
	StartedAt      *time.Time          `json:"startedAt"`
	ClosedAt       *time.Time          `json:"closedAt"`
	CompletedAt    *time.Time          `json:"completedAt"`
	Activities     []string            `json:"activities"`
	Materials      []string            `json:"materials"`
	Signature      []byte              `json:"signature,omitempty"`
	Evidence       [][]byte            `json:"evidence,omitempty"`
	Response       string              `json:"response,omitempty"`
}

type Page struct {
	Reports []ReportView `json:"reports"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

type UpdateResult struct {
	Report    *ReportView `json:"report"`
	Unchanged bool        `json:"unchanged,omitempty"`
}

type AuthorView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type CorrectionView struct {
	ID        string     `json:"id"`
	ReportID  uint       `json:"reportId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Author    AuthorView `json:"author"`
}

type CorrectionResult struct {
	Correction *CorrectionView `json:"correction"`
	Unchanged  bool            `json:"unchanged,omitempty"`
}

type MessageView struct {
	ID        uuid.UUID      `json:"id"`
	ReportID  uint           `json:"reportId"`
	Content   string         `json:"content"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"createdAt"`
	Member    *MemberSummary `json:"member"`
}

type OrderSummary struct {
	ID        uint                `json:"id"`
	Title     string              `json:"title"`
	Status    models.ReportStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	ClosedAt  *time.Time          `json:"closedAt,omitempty"`
}

type TechnicianView struct {
	ID          uuid.UUID         `json:"id"`
	Role        models.MemberRole `json:"role"`
	UserID      uuid.UUID         `json:"userId"`
	User        *UserSummary      `json:"user"`
	LatestOrder *OrderSummary     `json:"latestOrder"`
}

type TechnicianPage struct {
	Technicians []TechnicianView `json:"technicians"`
	Total       int64            `json:"total"`
	Limit       int              `json:"limit"`
	Offset      int              `json:"offset"`
}

type TechnicianDetail struct {
	Technician    TechnicianView `json:"technician"`
	OpenHistory   []OrderSummary `json:"openHistory"`
	ClosedHistory []OrderSummary `json:"closedHistory"`
}

type MemberOption struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type EventView struct {
	ID         uuid.UUID           `json:"id"`
	Kind       models.EventKind    `json:"kind"`
	FromStatus models.ReportStatus `json:"fromStatus,omitempty"`
	ToStatus   models.ReportStatus `json:"toStatus,omitempty"`
	MemberID   *uuid.UUID          `json:"memberId,omitempty"`
	Note       string              `json:"note,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func userSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

func memberSummary(m *models.Member) *MemberSummary {
	if m == nil {
		return nil
	}
	return &MemberSummary{ID: m.ID, Role: m.Role, User: userSummary(m.User)}
}

func orderSummary(r *models.Report) OrderSummary {
	return OrderSummary{ID: r.ID, Title: r.Title, Status: r.Status, CreatedAt: r.CreatedAt, ClosedAt: r.ClosedAt}
}

// authorRoleLabel is the label shown next to a correction's author.
func authorRoleLabel(role models.MemberRole) string {
	if role == models.RoleOwner || role == models.RoleAdmin {
		return "Coordinador"
	}
	return "Técnico"
}

func authorView(m *models.Member) AuthorView {
	if m == nil {
		return AuthorView{Name: "—", Role: authorRoleLabel("")}
	}
	name := m.User.DisplayName()
	if name == "" {
		name = "—"
	}
	return AuthorView{ID: m.ID, Name: name, Role: authorRoleLabel(m.Role)}
}

func correctionView(c *models.Correction) CorrectionView {
	return CorrectionView{
		ID:        c.ID,
		ReportID:  c.ReportID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    authorView(c.Member),
	}
}

func messageView(m *models.Message) MessageView {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return MessageView{
		ID:        m.ID,
		ReportID:  m.ReportID,
		Content:   m.Content,
		Tags:      tags,
		CreatedAt: m.CreatedAt,
		Member:    memberSummary(m.Member),
	}
}

func eventView(e *models.ReportEvent) EventView {
	return EventView{
		ID:         e.ID,
		Kind:       e.Kind,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		MemberID:   e.MemberID,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	}
}

// reportView builds the API view. withBlobs opens the sealed attachments.
func (s *Service) reportView(r *models.Report, withBlobs bool) (*ReportView, error) {
	v := &ReportView{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Title:          r.Title,
		Content:        r.Content,
		Status:         r.Status,
		MemberID:       r.MemberID,
		Assignee:       memberSummary(r.Assignee),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		ScheduledAt:    r.ScheduledAt,
		StartedAt:      r.StartedAt,
		ClosedAt:       r.ClosedAt,
		CompletedAt:    r.ClosedAt,
		Activities:     nonNil(r.Activities),
		Materials:      nonNil(r.Materials),
		Response:       r.Response,
	}
	if withBlobs {
		sig, err := openBlob(s.sealer, r.Signature)
		if err != nil {
			return nil, err
		}
		ev, err := openBlobs(s.sealer, r.Evidence)
		if err != nil {
			return nil, err
		}
		v.Signature = sig
		if len(ev) > 0 {
			v.Evidence = ev
		}
	}
	return v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
