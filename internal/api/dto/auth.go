package dto

import (
	"github.com/hugh/fieldops/internal/database/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() map[string]string {
	return Validate(r)
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Role  string `json:"role"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:    u.ID.String(),
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
		Role:  u.Role,
	}
}

type OrganizationDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Logo string `json:"logo,omitempty"`
	// Role is the caller's membership role, when listing the caller's organizations.
	Role    string      `json:"role,omitempty"`
	Members []MemberDTO `json:"members,omitempty"`
}

type MemberDTO struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	UserID    string   `json:"userId"`
	User      *UserDTO `json:"user,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

func NewOrganizationDTO(org *models.Organization) OrganizationDTO {
	out := OrganizationDTO{
		ID:   org.ID.String(),
		Name: org.Name,
		Slug: org.Slug,
		Logo: org.Logo,
	}
	for i := range org.Members {
		out.Members = append(out.Members, NewMemberDTO(&org.Members[i]))
	}
	return out
}

func NewMemberDTO(m *models.Member) MemberDTO {
	out := MemberDTO{
		ID:        m.ID.String(),
		Role:      string(m.Role),
		UserID:    m.UserID.String(),
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if m.User != nil {
		u := NewUserDTO(m.User)
		out.User = &u
	}
	return out
}

// MeResponse describes the signed-in user and the organizations they belong to.
type MeResponse struct {
	User          UserDTO           `json:"user"`
	Organizations []OrganizationDTO `json:"organizations"`
}
