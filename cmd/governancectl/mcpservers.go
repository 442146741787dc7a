package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

var mcpServerResource = resource{
	use:       "mcp-servers",
	aliases:   []string{"mcp-server", "mcp"},
	singular:  "MCP server",
	path:      "/mcp-servers",
	newList:   newMCPServerListCmd,
	newGet:    newMCPServerGetCmd,
	newCreate: newMCPServerCreateCmd,
	newUpdate: newMCPServerUpdateCmd,
}

var mcpServerHeaders = []string{"ID", "Name", "State", "Auth", "Owner", "Use Case", "Updated"}

func mcpServerRow(s governance.MCPServer) []string {
	return []string{
		s.ID,
		truncate(s.Name, 32),
		string(s.State),
		string(s.AuthType),
		s.OwnerEmail,
		deref(s.BusinessUseCaseID),
		formatTime(s.UpdatedAt),
	}
}

func printMCPServer(p printer, s governance.MCPServer) error {
	if p.structured() {
		return p.print(s)
	}
	p.printTable(mcpServerHeaders, [][]string{mcpServerRow(s)})
	if s.DeprecationReason != nil {
		fmt.Fprintf(p.w, "Deprecated: %s\n", *s.DeprecationReason)
	}
	return nil
}

func newMCPServerListCmd(opts *options, r resource) *cobra.Command {
	q := &listQuery{}
	var useCase string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := q.values()
			if useCase != "" {
				v.Set("useCaseId", useCase)
			}
			var list governance.MCPServerList
			if err := newClient(opts).getJSON(cmd.Context(), withQuery(governanceAPIBase+r.path, v), &list); err != nil {
				return fmt.Errorf("failed to list MCP servers: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(list)
			}
			rows := make([][]string, 0, len(list.Items))
			for _, s := range list.Items {
				rows = append(rows, mcpServerRow(s))
			}
			p.printTable(mcpServerHeaders, rows)
			if list.NextPageToken != "" {
				fmt.Fprintf(p.w, "Next page: --page-token %s\n", list.NextPageToken)
			}
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().StringVar(&useCase, "use-case", "", "Filter by linked use case id")
	return cmd
}

func newMCPServerGetCmd(opts *options, r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s governance.MCPServer
			if err := newClient(opts).getJSON(cmd.Context(), r.itemPath(args[0]), &s); err != nil {
				return fmt.Errorf("failed to get MCP server: %w", err)
			}
			return printMCPServer(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, s)
		},
	}
}

func newMCPServerCreateCmd(opts *options, r resource) *cobra.Command {
	var (
		req               governance.CreateMCPServerRequest
		authType, bu, ucs string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an MCP server in draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.EndpointURL) == "" {
				return fmt.Errorf("--name and --endpoint are required")
			}
			req.AuthType = governance.AuthType(authType)
			req.BusinessUnitID = stringPtrFlag(cmd, "bu", bu)
			req.BusinessUseCaseID = stringPtrFlag(cmd, "use-case", ucs)

			var s governance.MCPServer
			if err := newClient(opts).postJSON(cmd.Context(), governanceAPIBase+r.path, req, &s); err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return printMCPServer(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, s)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Name")
	cmd.Flags().StringVar(&req.EndpointURL, "endpoint", "", "Endpoint URL")
	cmd.Flags().StringVar(&authType, "auth-type", "", "Authentication type")
	cmd.Flags().StringSliceVar(&req.Tags, "tags", nil, "Tags")
	cmd.Flags().StringVar(&bu, "bu", "", "Business unit id (defaults to the caller's)")
	cmd.Flags().StringVar(&ucs, "use-case", "", "Linked business use case id")
	return cmd
}

func newMCPServerUpdateCmd(opts *options, r resource) *cobra.Command {
	var (
		name, endpoint, authType, ucs, expected string
		tags                                    []string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit MCP server metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := expectedFlag(expected)
			if err != nil {
				return err
			}
			req := governance.UpdateMCPServerRequest{
				Name:              stringPtrFlag(cmd, "name", name),
				EndpointURL:       stringPtrFlag(cmd, "endpoint", endpoint),
				Tags:              tagsFlag(cmd, tags),
				BusinessUseCaseID: stringPtrFlag(cmd, "use-case", ucs),
				ExpectedUpdatedAt: at,
			}
			if cmd.Flags().Changed("auth-type") {
				a := governance.AuthType(authType)
				req.AuthType = &a
			}
			if req.Name == nil && req.EndpointURL == nil && req.AuthType == nil && req.Tags == nil && req.BusinessUseCaseID == nil {
				return fmt.Errorf("at least one of --name, --endpoint, --auth-type, --tags, --use-case must be specified")
			}

			var s governance.MCPServer
			if err := newClient(opts).patchJSON(cmd.Context(), r.itemPath(args[0]), req, &s); err != nil {
				return fmt.Errorf("failed to update MCP server: %w", err)
			}
			return printMCPServer(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, s)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "New endpoint URL")
	cmd.Flags().StringVar(&authType, "auth-type", "", "New authentication type")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replacement tags")
	cmd.Flags().StringVar(&ucs, "use-case", "", "Linked business use case id; empty unlinks")
	cmd.Flags().StringVar(&expected, "expected-updated-at", "", "Fail as stale unless updatedAt still equals this RFC 3339 time")
	return cmd
}
