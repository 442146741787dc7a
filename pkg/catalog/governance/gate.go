package governance

import (
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// adminRoles may perform destructive operations regardless of ownership.
var adminRoles = []roles.Tag{roles.ProductAdmin, roles.EngineeringAdmin, roles.PlatformGovernance}

// editorRoles may edit any non-terminal entity.
var editorRoles = []roles.Tag{roles.PlatformAdmin, roles.PlatformGovernance}

// IsAdmin reports whether rs authorizes destructive operations.
func IsAdmin(rs roles.Set) bool {
	return roles.HasAny(rs, adminRoles...)
}

// AuthorizationGate answers what a caller may do with an entity snapshot.
// Every predicate is a pure function of its arguments.
type AuthorizationGate struct {
	machine *LifecycleMachine
}

// NewAuthorizationGate creates a gate over machine's edge tables.
func NewAuthorizationGate(machine *LifecycleMachine) *AuthorizationGate {
	return &AuthorizationGate{machine: machine}
}

// CanEdit reports whether caller may change e's descriptive fields. Terminal
// entities are read-only, except that platform governance may still annotate
// a deprecated MCP server.
func (g *AuthorizationGate) CanEdit(e Entity, caller authz.Caller) bool {
	if g.machine.IsTerminal(e.Kind, e.State) {
		return e.Kind == KindMCPServer && e.State == StateDeprecated && caller.Has(roles.PlatformGovernance)
	}
	return isOwner(e, caller) || caller.Has(editorRoles...)
}

// CanApprove reports whether an approve or reject edge leaves e's state whose
// role set intersects the caller's roles.
func (g *AuthorizationGate) CanApprove(e Entity, caller authz.Caller) bool {
	for _, rule := range g.machine.Outgoing(e.Kind, e.State) {
		if rule.IsReview() && caller.Has(rule.Roles...) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether caller may delete entities.
func (g *AuthorizationGate) IsAdmin(caller authz.Caller) bool {
	return IsAdmin(caller.Roles)
}

// AvailableEdges lists the edges caller is permitted to attempt from e's
// current state. Preconditions such as a linked use case are not checked.
func (g *AuthorizationGate) AvailableEdges(e Entity, caller authz.Caller) []Edge {
	edges := []Edge{}
	for _, rule := range g.machine.Outgoing(e.Kind, e.State) {
		if rule.Permits(e, caller) {
			edges = append(edges, rule.Edge)
		}
	}
	return edges
}

// Permissions bundles every predicate for e and caller.
func (g *AuthorizationGate) Permissions(e Entity, caller authz.Caller) Permissions {
	return Permissions{
		CanEdit:        g.CanEdit(e, caller),
		CanApprove:     g.CanApprove(e, caller),
		CanDelete:      g.IsAdmin(caller),
		AvailableEdges: g.AvailableEdges(e, caller),
	}
}
