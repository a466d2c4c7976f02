package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/database"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/spf13/cobra"
)

// demoOrgSlug is the organization the root page sends fresh installs to.
const demoOrgSlug = "hello-world"

type seedOptions struct {
	Email    string
	Password string
	Name     string
}

type seedResult struct {
	AdminEmail   string `json:"adminEmail"`
	AdminCreated bool   `json:"adminCreated"`
	Organization string `json:"organization"`
	OrgCreated   bool   `json:"orgCreated"`
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the platform admin and the demo organization",
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			if err := database.AutoMigrate(e.db.WithContext(ctx)); err != nil {
				return err
			}
			authService, orgService := e.services()
			res, err := seed(ctx, authService, orgService, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}),
	}

	cmd.Flags().StringVar(&opts.Email, "email", "admin@example.com", "Admin email")
	cmd.Flags().StringVar(&opts.Password, "password", "admin123!", "Admin password")
	cmd.Flags().StringVar(&opts.Name, "name", "Admin", "Admin display name")
	return cmd
}

// seed is idempotent: existing users, organizations and memberships are kept.
func seed(ctx context.Context, authService *auth.Service, orgService *auth.OrgService, opts seedOptions) (*seedResult, error) {
	res := &seedResult{AdminEmail: opts.Email, Organization: demoOrgSlug}

	admin, err := authService.CreateUser(ctx, auth.CreateUserInput{
		Email:    opts.Email,
		Password: opts.Password,
		Name:     opts.Name,
		Admin:    true,
	})
	switch {
	case err == nil:
		res.AdminCreated = true
	case errors.Is(err, auth.ErrUserExists):
		if admin, err = authService.GetUserByEmail(ctx, opts.Email); err != nil {
			return nil, fmt.Errorf("loading admin: %w", err)
		}
	default:
		return nil, fmt.Errorf("creating admin: %w", err)
	}

	_, err = orgService.CreateOrganization(ctx, auth.CreateOrganizationInput{
		Name:    "Hello World",
		Slug:    demoOrgSlug,
		OwnerID: &admin.ID,
	})
	switch {
	case err == nil:
		res.OrgCreated = true
	case errors.Is(err, auth.ErrOrganizationExists):
		if _, err := orgService.AddMember(ctx, demoOrgSlug, admin.ID, models.RoleOwner); err != nil && !errors.Is(err, auth.ErrMemberExists) {
			return nil, fmt.Errorf("adding admin to %s: %w", demoOrgSlug, err)
		}
	default:
		return nil, fmt.Errorf("creating %s: %w", demoOrgSlug, err)
	}

	return res, nil
}
