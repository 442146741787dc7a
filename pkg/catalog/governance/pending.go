package governance

import (
	"context"
	"slices"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// reviewStates returns the states of kind that have an approve or reject
// edge open to role. An empty role matches every reviewer.
func (m *LifecycleMachine) reviewStates(kind EntityKind, role roles.Tag) []State {
	seen := map[State]bool{}
	var out []State
	for _, rule := range m.graphs[kind].Edges {
		if !rule.IsReview() || seen[rule.From] {
			continue
		}
		if role != "" && !slices.Contains(rule.Roles, role) {
			continue
		}
		seen[rule.From] = true
		out = append(out, rule.From)
	}
	return out
}

// PendingApprovals lists entities awaiting a decision that role could make,
// optionally restricted to one business unit. Nothing is stored; the queue
// is computed from current entity states on every call.
func (e *Engine) PendingApprovals(ctx context.Context, role roles.Tag, businessUnitID string) (*PendingApprovals, error) {
	out := &PendingApprovals{
		Role:           role,
		BusinessUnitID: businessUnitID,
		UseCases:       []UseCase{},
		MCPServers:     []MCPServer{},
	}

	if states := e.machine.reviewStates(KindUseCase, role); len(states) > 0 {
		filter := ListFilter{States: states, BusinessUnitID: businessUnitID}
		token := ""
		for {
			recs, next, err := e.repo.ListUseCases(ctx, filter, maxPageSize, token)
			if err != nil {
				return nil, classify("list pending use cases", err)
			}
			items, err := e.useCasesToAPI(ctx, recs)
			if err != nil {
				return nil, err
			}
			out.UseCases = append(out.UseCases, items...)
			if next == "" {
				break
			}
			token = next
		}
	}

	if states := e.machine.reviewStates(KindMCPServer, role); len(states) > 0 {
		filter := ListFilter{States: states, BusinessUnitID: businessUnitID}
		token := ""
		for {
			recs, next, err := e.repo.ListMCPServers(ctx, filter, maxPageSize, token)
			if err != nil {
				return nil, classify("list pending mcp servers", err)
			}
			for i := range recs {
				out.MCPServers = append(out.MCPServers, recs[i].toAPI())
			}
			if next == "" {
				break
			}
			token = next
		}
	}
	return out, nil
}
