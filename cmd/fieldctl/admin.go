package main

import (
	"context"
	"fmt"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/spf13/cobra"
)

func newCreateUserCmd() *cobra.Command {
	var req dto.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user (sign-up is disabled)",
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			if errs := req.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid input: %v", errs)
			}
			authService, _ := e.services()
			user, err := authService.CreateUser(ctx, auth.CreateUserInput{
				Email:    req.Email,
				Password: req.Password,
				Name:     req.Name,
				Admin:    req.Admin,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.NewUserDTO(user))
		}),
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password, at least 8 characters (required)")
	cmd.Flags().BoolVar(&req.Admin, "admin", false, "Grant the platform admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newCreateOrgCmd() *cobra.Command {
	var req dto.CreateOrganizationRequest

	cmd := &cobra.Command{
		Use:   "create-org",
		Short: "Create an organization",
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			if errs := req.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid input: %v", errs)
			}
			authService, orgService := e.services()

			input := auth.CreateOrganizationInput{Name: req.Name, Slug: req.Slug, Logo: req.Logo}
			if req.OwnerEmail != "" {
				owner, err := authService.GetUserByEmail(ctx, req.OwnerEmail)
				if err != nil {
					return fmt.Errorf("owner %s: %w", req.OwnerEmail, err)
				}
				input.OwnerID = &owner.ID
			}

			org, err := orgService.CreateOrganization(ctx, input)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.NewOrganizationDTO(org))
		}),
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Organization name (required)")
	cmd.Flags().StringVar(&req.Slug, "slug", "", "URL slug (generated from the name when empty)")
	cmd.Flags().StringVar(&req.Logo, "logo", "", "Logo URL")
	cmd.Flags().StringVar(&req.OwnerEmail, "owner", "", "Email of the user to add as owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddMemberCmd() *cobra.Command {
	var (
		orgSlug string
		req     dto.AddMemberRequest
	)

	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a user to an organization",
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env) error {
			if errs := req.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid input: %v", errs)
			}
			authService, orgService := e.services()

			user, err := authService.GetUserByEmail(ctx, req.Email)
			if err != nil {
				return fmt.Errorf("user %s: %w", req.Email, err)
			}
			member, err := orgService.AddMember(ctx, orgSlug, user.ID, models.MemberRole(req.Role))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.NewMemberDTO(member))
		}),
	}

	cmd.Flags().StringVar(&orgSlug, "org", "", "Organization slug (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&req.Role, "role", string(models.RoleMember), "owner, admin or member")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
