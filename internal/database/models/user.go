package models

// Platform roles. Organization roles live on Member.
const (
	PlatformRoleUser  = "user"
	PlatformRoleAdmin = "admin"
)

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	Role         string `gorm:"default:'user'" json:"role"` // user, admin
	IsActive     bool   `gorm:"default:true" json:"isActive"`

	// Relationships
	Memberships []Member `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email when the user has no name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
