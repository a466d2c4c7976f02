package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportStatus string

const (
	StatusPending    ReportStatus = "PENDING"
	StatusScheduled  ReportStatus = "SCHEDULED"
	StatusInProgress ReportStatus = "IN_PROGRESS"
	StatusCompleted  ReportStatus = "COMPLETED"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Report is a work order. Once COMPLETED it is served as a historical report.
type Report struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"organizationId"`
	Title          string       `gorm:"not null" json:"title"`
	Content        string       `gorm:"type:text" json:"content"`
	Status         ReportStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	MemberID       *uuid.UUID   `gorm:"type:uuid;index" json:"memberId"`
	CreatedAt      time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	ScheduledAt    *time.Time   `json:"scheduledAt"`
	StartedAt      *time.Time   `json:"startedAt"`
	ClosedAt       *time.Time   `gorm:"index" json:"closedAt"`

	Activities []string `gorm:"type:text;serializer:json" json:"activities"`
	Materials  []string `gorm:"type:text;serializer:json" json:"materials"`
	Signature  []byte   `json:"-"`
	Evidence   [][]byte `gorm:"type:text;serializer:json" json:"-"`
	Response   string   `gorm:"type:text" json:"response,omitempty"`

	// Relationships
	Assignee     *Member       `gorm:"foreignKey:MemberID" json:"assignee,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

// ClosedBy reports whether the report counted as closed at t.
func (r *Report) ClosedBy(t time.Time) bool {
	return r.Status == StatusCompleted && r.ClosedAt != nil && !r.ClosedAt.After(t)
}
