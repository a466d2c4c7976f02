// Package tenant carries the caller's resolved organization membership.
//
// A Context is built once per request by the tenant middleware and passed
// explicitly to every service call that operates inside an organization.
package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
)

type Context struct {
	Organization *models.Organization
	Member       *models.Member
}

func New(org *models.Organization, member *models.Member) Context {
	return Context{Organization: org, Member: member}
}

func (c Context) OrganizationID() uuid.UUID {
	if c.Organization == nil {
		return uuid.Nil
	}
	return c.Organization.ID
}

func (c Context) MemberID() uuid.UUID {
	if c.Member == nil {
		return uuid.Nil
	}
	return c.Member.ID
}

func (c Context) Role() models.MemberRole {
	if c.Member == nil {
		return ""
	}
	return c.Member.Role
}

// Owns reports whether id is the caller's member id. A nil id never matches.
func (c Context) Owns(id *uuid.UUID) bool {
	return id != nil && c.Member != nil && *id == c.Member.ID
}

type ctxKey struct{}

func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok && tc.Organization != nil && tc.Member != nil
}
