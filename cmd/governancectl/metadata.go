package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func newPendingCmd(opts *options) *cobra.Command {
	var role, bu string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List entities awaiting review",
		Long: `List use cases and MCP servers waiting for a decision.

With --role only the entities that role may decide are listed; --bu narrows
the queue to one business unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := url.Values{}
			if role != "" {
				v.Set("role", role)
			}
			if bu != "" {
				v.Set("buId", bu)
			}
			var pending governance.PendingApprovals
			if err := newClient(opts).getJSON(cmd.Context(), withQuery(governanceAPIBase+"/approvals/pending", v), &pending); err != nil {
				return fmt.Errorf("failed to list pending approvals: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(pending)
			}
			rows := make([][]string, 0, len(pending.UseCases)+len(pending.MCPServers))
			for _, uc := range pending.UseCases {
				rows = append(rows, []string{"use-case", uc.ID, truncate(uc.Title, 40), string(uc.State), uc.OwnerEmail, deref(uc.BusinessUnitID)})
			}
			for _, s := range pending.MCPServers {
				rows = append(rows, []string{"mcp-server", s.ID, truncate(s.Name, 40), string(s.State), s.OwnerEmail, deref(s.BusinessUnitID)})
			}
			p.printTable([]string{"Kind", "ID", "Name", "State", "Owner", "BU"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Reviewer role, e.g. product_admin")
	cmd.Flags().StringVar(&bu, "bu", "", "Business unit id")
	return cmd
}

func newLifecycleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lifecycle",
		Short: "Show the lifecycle graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Graphs []governance.Graph `json:"graphs"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), governanceAPIBase+"/lifecycle", &result); err != nil {
				return fmt.Errorf("failed to get lifecycle: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			var rows [][]string
			for _, g := range result.Graphs {
				for _, e := range g.Edges {
					owner, _ := e.Owner.MarshalText()
					rows = append(rows, []string{
						string(g.Kind),
						string(e.From),
						string(e.Edge),
						string(e.To),
						strings.Join(roles.Strings(roles.NewSet(e.Roles...)), ", "),
						string(owner),
					})
				}
			}
			p.printTable([]string{"Kind", "From", "Edge", "To", "Roles", "Owner"}, rows)
			return nil
		},
	}
}

func newWhoAmICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the caller identity the server resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var who struct {
				Email          string   `json:"email"`
				Roles          []string `json:"roles"`
				BusinessUnitID string   `json:"businessUnitId"`
				IsAdmin        bool     `json:"isAdmin"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), governanceAPIBase+"/whoami", &who); err != nil {
				return fmt.Errorf("failed to resolve caller: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(who)
			}
			p.printTable([]string{"Email", "Roles", "BU", "Admin"}, [][]string{{
				who.Email, strings.Join(who.Roles, ", "), who.BusinessUnitID, fmt.Sprint(who.IsAdmin),
			}})
			return nil
		},
	}
}

func newRolesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List governance roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Items []struct {
					Name        string `json:"name"`
					Description string `json:"description"`
				} `json:"items"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), governanceAPIBase+"/roles", &result); err != nil {
				return fmt.Errorf("failed to list roles: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			rows := make([][]string, 0, len(result.Items))
			for _, r := range result.Items {
				rows = append(rows, []string{r.Name, r.Description})
			}
			p.printTable([]string{"Name", "Description"}, rows)
			return nil
		},
	}
}

func newBusinessUnitsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "business-units",
		Aliases: []string{"bus"},
		Short:   "List business units",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Items []roles.BusinessUnit `json:"items"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), governanceAPIBase+"/business-units", &result); err != nil {
				return fmt.Errorf("failed to list business units: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			rows := make([][]string, 0, len(result.Items))
			for _, bu := range result.Items {
				rows = append(rows, []string{bu.ID, bu.DisplayName, strings.Join(bu.Keywords, ", ")})
			}
			p.printTable([]string{"ID", "Display Name", "Keywords"}, rows)
			return nil
		},
	}
}
