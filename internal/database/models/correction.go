package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Correction is a rectification note attached to a report.
type Correction struct {
	ID        string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	ReportID  uint      `gorm:"not null;index" json:"reportId"`
	MemberID  uuid.UUID `gorm:"type:uuid;not null;index" json:"memberId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
	Report *Report `gorm:"foreignKey:ReportID" json:"-"`
}

func (Correction) TableName() string {
	return "corrections"
}

func (c *Correction) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	return nil
}
