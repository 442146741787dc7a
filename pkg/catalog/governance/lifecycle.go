package governance

import (
	"fmt"
	"strings"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// OwnerRule says how entity ownership combines with the edge's role set.
type OwnerRule int

const (
	// OwnerIgnored: only the role set matters.
	OwnerIgnored OwnerRule = iota
	// OwnerSuffices: the owner may act even without a listed role.
	OwnerSuffices
	// OwnerRequired: the caller must be the owner and hold a listed role.
	OwnerRequired
)

func (o OwnerRule) MarshalText() ([]byte, error) {
	switch o {
	case OwnerSuffices:
		return []byte("suffices"), nil
	case OwnerRequired:
		return []byte("required"), nil
	default:
		return []byte("ignored"), nil
	}
}

func (o *OwnerRule) UnmarshalText(b []byte) error {
	switch string(b) {
	case "suffices":
		*o = OwnerSuffices
	case "required":
		*o = OwnerRequired
	case "ignored", "":
		*o = OwnerIgnored
	default:
		return fmt.Errorf("unknown owner rule %q", b)
	}
	return nil
}

// EdgeRule defines one outgoing edge of a lifecycle graph.
type EdgeRule struct {
	From  State       `json:"from"`
	Edge  Edge        `json:"edge"`
	To    State       `json:"to"`
	Roles []roles.Tag `json:"roles"`
	Owner OwnerRule   `json:"owner"`
	// LedgerRole is the approver role recorded in the ledger; empty when
	// the edge writes no ledger entry.
	LedgerRole roles.Tag `json:"ledgerRole,omitempty"`
	// RequiresUseCaseLink rejects the edge unless a business use case is linked.
	RequiresUseCaseLink bool `json:"requiresUseCaseLink,omitempty"`
	// RequiresReason rejects the edge unless a non-blank reason is supplied.
	RequiresReason bool `json:"requiresReason,omitempty"`
}

// IsReview reports whether the edge is an approve or reject decision.
func (r EdgeRule) IsReview() bool {
	return r.Edge == EdgeApprove || r.Edge == EdgeReject
}

// Permits reports whether caller may follow the edge on e, ignoring
// preconditions. An empty role set never permits anything.
func (r EdgeRule) Permits(e Entity, caller authz.Caller) bool {
	if caller.Roles == nil || caller.Roles.Cardinality() == 0 {
		return false
	}
	hasRole := caller.Has(r.Roles...)
	switch r.Owner {
	case OwnerSuffices:
		return hasRole || isOwner(e, caller)
	case OwnerRequired:
		return hasRole && isOwner(e, caller)
	default:
		return hasRole
	}
}

func isOwner(e Entity, caller authz.Caller) bool {
	return caller.Email != "" && strings.EqualFold(caller.Email, e.OwnerEmail)
}

// UseCaseEdges is the business use case graph.
var UseCaseEdges = []EdgeRule{
	{From: StateDraft, Edge: EdgeSubmit, To: StatePendingProductAdmin,
		Roles: []roles.Tag{roles.Publisher, roles.ProductAdmin, roles.PlatformGovernance}, Owner: OwnerSuffices},
	{From: StatePendingProductAdmin, Edge: EdgeApprove, To: StatePendingPlatformAdmin,
		Roles: []roles.Tag{roles.ProductAdmin}, LedgerRole: roles.ProductAdmin},
	{From: StatePendingProductAdmin, Edge: EdgeReject, To: StateRejected,
		Roles: []roles.Tag{roles.ProductAdmin}, LedgerRole: roles.ProductAdmin},
	{From: StatePendingPlatformAdmin, Edge: EdgeApprove, To: StateActive,
		Roles: []roles.Tag{roles.PlatformAdmin, roles.PlatformGovernance}, LedgerRole: roles.PlatformAdmin},
	{From: StatePendingPlatformAdmin, Edge: EdgeReject, To: StateRejected,
		Roles: []roles.Tag{roles.PlatformAdmin, roles.PlatformGovernance}, LedgerRole: roles.PlatformAdmin},
	{From: StateActive, Edge: EdgeDeprecate, To: StateArchived,
		Roles: []roles.Tag{roles.PlatformGovernance, roles.ProductAdmin}},
}

// MCPServerEdges is the MCP server graph.
var MCPServerEdges = []EdgeRule{
	{From: StateDraft, Edge: EdgeSubmit, To: StateInReview,
		Roles: []roles.Tag{roles.Publisher, roles.ProductAdmin}, Owner: OwnerRequired, RequiresUseCaseLink: true},
	{From: StateInReview, Edge: EdgeApprove, To: StateActive,
		Roles: []roles.Tag{roles.PlatformGovernance}},
	{From: StateInReview, Edge: EdgeReject, To: StateDraft,
		Roles: []roles.Tag{roles.PlatformGovernance}},
	{From: StateActive, Edge: EdgeDeprecate, To: StateDeprecated,
		Roles: []roles.Tag{roles.ProductAdmin, roles.EngineeringAdmin, roles.PlatformGovernance}, RequiresReason: true},
}

// Decision is the machine's verdict for an allowed transition.
type Decision struct {
	Rule EdgeRule
	From State
	To   State
	// LedgerAction is set when the edge writes a ledger entry.
	LedgerAction ApprovalAction
}

// Graph describes one entity kind's lifecycle.
type Graph struct {
	Kind     EntityKind `json:"kind"`
	Initial  State      `json:"initial"`
	States   []State    `json:"states"`
	Terminal []State    `json:"terminal"`
	Edges    []EdgeRule `json:"edges"`
}

// LifecycleMachine decides transitions for both entity kinds. It holds no
// mutable state and is safe for concurrent use.
type LifecycleMachine struct {
	graphs map[EntityKind]Graph
}

// NewLifecycleMachine creates a machine over the default graphs.
func NewLifecycleMachine() *LifecycleMachine {
	return &LifecycleMachine{
		graphs: map[EntityKind]Graph{
			KindUseCase: buildGraph(KindUseCase, []State{
				StateDraft, StatePendingProductAdmin, StatePendingPlatformAdmin,
				StateActive, StateRejected, StateArchived,
			}, UseCaseEdges),
			KindMCPServer: buildGraph(KindMCPServer, []State{
				StateDraft, StateInReview, StateActive, StateDeprecated,
			}, MCPServerEdges),
		},
	}
}

func buildGraph(kind EntityKind, states []State, edges []EdgeRule) Graph {
	g := Graph{Kind: kind, Initial: StateDraft, States: states, Edges: edges}
	for _, s := range states {
		terminal := true
		for _, e := range edges {
			if e.From == s {
				terminal = false
				break
			}
		}
		if terminal {
			g.Terminal = append(g.Terminal, s)
		}
	}
	return g
}

// Graph returns the lifecycle graph for kind.
func (m *LifecycleMachine) Graph(kind EntityKind) Graph {
	return m.graphs[kind]
}

// Graphs returns both graphs in a stable order.
func (m *LifecycleMachine) Graphs() []Graph {
	return []Graph{m.graphs[KindUseCase], m.graphs[KindMCPServer]}
}

// ValidState reports whether s belongs to kind's graph.
func (m *LifecycleMachine) ValidState(kind EntityKind, s State) bool {
	for _, st := range m.graphs[kind].States {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves s.
func (m *LifecycleMachine) IsTerminal(kind EntityKind, s State) bool {
	for _, t := range m.graphs[kind].Terminal {
		if t == s {
			return true
		}
	}
	return false
}

// Outgoing returns the edges leaving s.
func (m *LifecycleMachine) Outgoing(kind EntityKind, s State) []EdgeRule {
	var out []EdgeRule
	for _, e := range m.graphs[kind].Edges {
		if e.From == s {
			out = append(out, e)
		}
	}
	return out
}

// Rule looks up the edge named edge leaving from.
func (m *LifecycleMachine) Rule(kind EntityKind, from State, edge Edge) (EdgeRule, bool) {
	for _, e := range m.graphs[kind].Edges {
		if e.From == from && e.Edge == edge {
			return e, true
		}
	}
	return EdgeRule{}, false
}

// Decide checks, in order, that edge leaves e's state, that caller may follow
// it and that its preconditions hold. reason is only consulted by edges that
// require one.
func (m *LifecycleMachine) Decide(e Entity, edge Edge, caller authz.Caller, reason string) (Decision, error) {
	rule, ok := m.Rule(e.Kind, e.State, edge)
	if !ok {
		return Decision{}, newError(CodeIllegalEdge, "no %q edge from %s state %q", edge, e.Kind, e.State)
	}
	if !rule.Permits(e, caller) {
		return Decision{}, newError(CodeUnauthorized, "caller may not %s a %s in state %q", edge, e.Kind, e.State)
	}
	if rule.RequiresUseCaseLink && strings.TrimSpace(e.BusinessUseCaseID) == "" {
		return Decision{}, newError(CodePreconditionFailed, "%s requires a linked business use case", edge)
	}
	if rule.RequiresReason && strings.TrimSpace(reason) == "" {
		return Decision{}, newError(CodePreconditionFailed, "%s requires a reason", edge)
	}

	d := Decision{Rule: rule, From: e.State, To: rule.To}
	if rule.LedgerRole != "" {
		switch rule.Edge {
		case EdgeApprove:
			d.LedgerAction = ActionApproved
		case EdgeReject:
			d.LedgerAction = ActionRejected
		}
	}
	return d, nil
}
