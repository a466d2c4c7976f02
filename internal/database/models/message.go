package models

import "github.com/google/uuid"

// Message is an append-only note posted on an order.
type Message struct {
	Base
	ReportID uint      `gorm:"not null;index" json:"reportId"`
	MemberID uuid.UUID `gorm:"type:uuid;not null" json:"memberId"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	Tags     []string  `gorm:"type:text;serializer:json" json:"tags"`

	// Relationships
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
