package workorder

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/tenant"
	"github.com/hugh/fieldops/pkg/metrics"
)

//go:embed model.conf
var modelText string

// Objects guarded by the policy.
const (
	ObjectReport     = "report"
	ObjectCorrection = "correction"
	ObjectMessage    = "message"
	ObjectTechnician = "technician"
	ObjectDashboard  = "dashboard"
	ObjectMember     = "member"
)

// Actions. ActionManage covers every operation in the organization;
// ActionSelf only applies when the caller owns the resource.
const (
	ActionManage = "manage"
	ActionSelf   = "self"
)

// Policy decides whether a member may act on a resource.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("loading policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("creating enforcer: %w", err)
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return &Policy{enforcer: enforcer}, nil
}

// MustNewPolicy panics if the embedded model fails to load.
func MustNewPolicy() *Policy {
	p, err := NewPolicy()
	if err != nil {
		panic(err)
	}
	return p
}

func seedPolicies(e *casbin.Enforcer) error {
	var rules [][]string
	for _, role := range []models.MemberRole{models.RoleOwner, models.RoleAdmin} {
		for _, obj := range []string{ObjectReport, ObjectCorrection, ObjectMessage, ObjectTechnician, ObjectDashboard, ObjectMember} {
			rules = append(rules, []string{string(role), obj, ActionManage})
		}
	}
	for _, obj := range []string{ObjectReport, ObjectCorrection, ObjectMessage, ObjectTechnician} {
		rules = append(rules, []string{string(models.RoleMember), obj, ActionSelf})
	}

	if _, err := e.AddPolicies(rules); err != nil {
		return fmt.Errorf("seeding policies: %w", err)
	}
	return nil
}

// Authorize returns nil when the caller may act on object. ownerID is the
// resource's assignee or author; a nil ownerID is only reachable through manage.
func (p *Policy) Authorize(caller tenant.Context, object string, ownerID *uuid.UUID) error {
	if caller.Member == nil {
		return ErrUnauthorized
	}
	role := string(caller.Role())

	allowed, err := p.enforcer.Enforce(role, object, ActionManage)
	if err != nil {
		return fmt.Errorf("enforcing policy: %w", err)
	}
	if !allowed && caller.Owns(ownerID) {
		allowed, err = p.enforcer.Enforce(role, object, ActionSelf)
		if err != nil {
			return fmt.Errorf("enforcing policy: %w", err)
		}
	}

	metrics.ObserveAuthz(object, allowed)
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// CanManage reports whether the caller holds the manage action on object.
func (p *Policy) CanManage(caller tenant.Context, object string) bool {
	if caller.Member == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(string(caller.Role()), object, ActionManage)
	return err == nil && ok
}
