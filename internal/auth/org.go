package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/hugh/fieldops/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrOrganizationExists   = errors.New("organization already exists")
	ErrNotMember            = errors.New("user is not a member of the organization")
	ErrMemberExists         = errors.New("user is already a member")
	ErrInvalidRole          = errors.New("invalid member role")
	ErrInvalidSlug          = errors.New("invalid organization slug")
)

// OrgService manages organizations and memberships.
type OrgService struct {
	db *gorm.DB
}

func NewOrgService(db *gorm.DB) *OrgService {
	return &OrgService{db: db}
}

type CreateOrganizationInput struct {
	Name string
	Slug string
	Logo string
	// OwnerID, when set, is added as the organization's owner.
	OwnerID *uuid.UUID
}

func (s *OrgService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	orgSlug := strings.TrimSpace(input.Slug)
	if orgSlug == "" {
		orgSlug = slug.Make(name)
	} else if !slug.IsSlug(orgSlug) {
		return nil, ErrInvalidSlug
	}
	if name == "" || orgSlug == "" {
		return nil, ErrInvalidSlug
	}

	org := models.Organization{Name: name, Slug: orgSlug, Logo: input.Logo}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Organization{}).Where("slug = ?", orgSlug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrOrganizationExists
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		if input.OwnerID != nil {
			return tx.Create(&models.Member{
				OrganizationID: org.ID,
				UserID:         *input.OwnerID,
				Role:           models.RoleOwner,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *OrgService) GetBySlug(ctx context.Context, orgSlug string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).Where("slug = ?", orgSlug).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// GetFullOrganization loads an organization with its members and their users.
func (s *OrgService) GetFullOrganization(ctx context.Context, orgSlug string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc").Limit(100) }).
		Preload("Members.User").
		Where("slug = ?", orgSlug).
		First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// ListOrganizations returns the organizations the user belongs to.
func (s *OrgService) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN members ON members.organization_id = organizations.id AND members.deleted_at IS NULL").
		Where("members.user_id = ?", userID).
		Order("organizations.name asc").
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// ListAllOrganizations is used by platform admins.
func (s *OrgService) ListAllOrganizations(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := s.db.WithContext(ctx).Order("name asc").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *OrgService) AddMember(ctx context.Context, orgSlug string, userID uuid.UUID, role models.MemberRole) (*models.Member, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	org, err := s.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("organization_id = ? AND user_id = ?", org.ID, userID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrMemberExists
	}

	member := models.Member{OrganizationID: org.ID, UserID: userID, Role: role}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, fmt.Errorf("creating member: %w", err)
	}
	member.User = &user
	return &member, nil
}

func (s *OrgService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	var members []models.Member
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID).
		Order("created_at asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ActiveMember resolves the organization by slug and the user's membership in it.
// It returns ErrOrganizationNotFound or ErrNotMember.
func (s *OrgService) ActiveMember(ctx context.Context, userID uuid.UUID, orgSlug string) (*models.Organization, *models.Member, error) {
	org, err := s.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, nil, err
	}

	var member models.Member
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND user_id = ?", org.ID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return org, nil, ErrNotMember
		}
		return nil, nil, err
	}
	return org, &member, nil
}
