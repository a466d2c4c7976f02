package models

import "github.com/google/uuid"

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Member joins a User to an Organization. The role is scoped to the membership.
type Member struct {
	Base
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user" json:"organizationId"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user" json:"userId"`
	Role           MemberRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	// Relationships
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Member) TableName() string {
	return "members"
}
