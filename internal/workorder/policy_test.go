package workorder_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caller(role models.MemberRole) tenant.Context {
	org := &models.Organization{Base: models.Base{ID: uuid.New()}, Slug: "acme"}
	member := &models.Member{Base: models.Base{ID: uuid.New()}, OrganizationID: org.ID, Role: role}
	return tenant.New(org, member)
}

func TestPolicy_Authorize(t *testing.T) {
	policy, err := workorder.NewPolicy()
	require.NoError(t, err)

	owner := caller(models.RoleOwner)
	admin := caller(models.RoleAdmin)
	tech := caller(models.RoleMember)
	stranger := uuid.New()
	techID := tech.MemberID()

	tests := []struct {
		name    string
		caller  tenant.Context
		object  string
		ownerID *uuid.UUID
		wantErr error
	}{
		{"owner manages any report", owner, workorder.ObjectReport, &stranger, nil},
		{"admin manages unassigned report", admin, workorder.ObjectReport, nil, nil},
		{"member reads own report", tech, workorder.ObjectReport, &techID, nil},
		{"member denied foreign report", tech, workorder.ObjectReport, &stranger, workorder.ErrForbidden},
		{"member denied unassigned report", tech, workorder.ObjectReport, nil, workorder.ErrForbidden},
		{"member corrects own report", tech, workorder.ObjectCorrection, &techID, nil},
		{"member views self as technician", tech, workorder.ObjectTechnician, &techID, nil},
		{"member denied dashboard", tech, workorder.ObjectDashboard, nil, workorder.ErrForbidden},
		{"member denied dashboard even when owner matches", tech, workorder.ObjectDashboard, &techID, workorder.ErrForbidden},
		{"member denied member options", tech, workorder.ObjectMember, nil, workorder.ErrForbidden},
		{"admin reads dashboard", admin, workorder.ObjectDashboard, nil, nil},
		{"no membership", tenant.Context{}, workorder.ObjectReport, nil, workorder.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.caller, tt.object, tt.ownerID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPolicy_CanManage(t *testing.T) {
	policy := workorder.MustNewPolicy()

	assert.True(t, policy.CanManage(caller(models.RoleOwner), workorder.ObjectDashboard))
	assert.True(t, policy.CanManage(caller(models.RoleAdmin), workorder.ObjectMember))
	assert.True(t, policy.CanManage(caller(models.RoleOwner), workorder.ObjectReport))
	assert.True(t, policy.CanManage(caller(models.RoleAdmin), workorder.ObjectReport))
	assert.False(t, policy.CanManage(caller(models.RoleMember), workorder.ObjectDashboard))
	assert.False(t, policy.CanManage(caller(models.RoleMember), workorder.ObjectReport))
	assert.False(t, policy.CanManage(tenant.Context{}, workorder.ObjectReport))
}
