package models

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Logo string `json:"logo,omitempty"`

	// Relationships
	Members []Member `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Reports []Report `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
