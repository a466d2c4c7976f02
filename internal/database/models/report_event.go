package models

import "github.com/google/uuid"

type EventKind string

const (
	EventCreated       EventKind = "created"
	EventStatusChanged EventKind = "status_changed"
	EventAssigned      EventKind = "assigned"
	EventSLAMet        EventKind = "sla_met"
	EventSLABreached   EventKind = "sla_breached"
)

// ReportEvent is one entry in an order's activity timeline.
type ReportEvent struct {
	Base
	ReportID       uint         `gorm:"not null;index" json:"reportId"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"organizationId"`
	MemberID       *uuid.UUID   `gorm:"type:uuid" json:"memberId,omitempty"`
	Kind           EventKind    `gorm:"type:varchar(32);not null;index" json:"kind"`
	FromStatus     ReportStatus `gorm:"type:varchar(20)" json:"fromStatus,omitempty"`
	ToStatus       ReportStatus `gorm:"type:varchar(20)" json:"toStatus,omitempty"`
	Note           string       `json:"note,omitempty"`
}

func (ReportEvent) TableName() string {
	return "report_events"
}
