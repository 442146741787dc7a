package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

var useCaseResource = resource{
	use:       "use-cases",
	aliases:   []string{"use-case", "uc"},
	singular:  "use case",
	path:      "/use-cases",
	approvals: true,
	newList:   newUseCaseListCmd,
	newGet:    newUseCaseGetCmd,
	newCreate: newUseCaseCreateCmd,
	newUpdate: newUseCaseUpdateCmd,
}

func newUseCaseListCmd(opts *options, r resource) *cobra.Command {
	q := &listQuery{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List use cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list governance.UseCaseList
			if err := newClient(opts).getJSON(cmd.Context(), withQuery(governanceAPIBase+r.path, q.values()), &list); err != nil {
				return fmt.Errorf("failed to list use cases: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(list)
			}
			rows := make([][]string, 0, len(list.Items))
			for _, uc := range list.Items {
				rows = append(rows, useCaseRow(uc))
			}
			p.printTable(useCaseHeaders, rows)
			if list.NextPageToken != "" {
				fmt.Fprintf(p.w, "Next page: --page-token %s\n", list.NextPageToken)
			}
			return nil
		},
	}
	q.register(cmd)
	return cmd
}

var useCaseHeaders = []string{"ID", "Title", "State", "Owner", "BU", "Servers", "Updated"}

func useCaseRow(uc governance.UseCase) []string {
	return []string{
		uc.ID,
		truncate(uc.Title, 40),
		string(uc.State),
		uc.OwnerEmail,
		deref(uc.BusinessUnitID),
		fmt.Sprint(uc.MCPServerCount),
		formatTime(uc.UpdatedAt),
	}
}

func printUseCase(p printer, uc governance.UseCase) error {
	if p.structured() {
		return p.print(uc)
	}
	p.printTable(useCaseHeaders, [][]string{useCaseRow(uc)})
	return nil
}

func newUseCaseGetCmd(opts *options, r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a use case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var uc governance.UseCase
			if err := newClient(opts).getJSON(cmd.Context(), r.itemPath(args[0]), &uc); err != nil {
				return fmt.Errorf("failed to get use case: %w", err)
			}
			return printUseCase(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, uc)
		},
	}
}

func newUseCaseCreateCmd(opts *options, r resource) *cobra.Command {
	var (
		req governance.CreateUseCaseRequest
		bu  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a use case in draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.Title) == "" {
				return fmt.Errorf("--title is required")
			}
			req.BusinessUnitID = stringPtrFlag(cmd, "bu", bu)

			var uc governance.UseCase
			if err := newClient(opts).postJSON(cmd.Context(), governanceAPIBase+r.path, req, &uc); err != nil {
				return fmt.Errorf("failed to create use case: %w", err)
			}
			return printUseCase(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, uc)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringSliceVar(&req.Tags, "tags", nil, "Tags")
	cmd.Flags().IntVar(&req.SkillCount, "skill-count", 0, "Number of skills the use case needs")
	cmd.Flags().StringVar(&bu, "bu", "", "Business unit id (defaults to the caller's)")
	return cmd
}

func newUseCaseUpdateCmd(opts *options, r resource) *cobra.Command {
	var (
		title, description, expected string
		tags                         []string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit use case metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := expectedFlag(expected)
			if err != nil {
				return err
			}
			req := governance.UpdateUseCaseRequest{
				Title:             stringPtrFlag(cmd, "title", title),
				Description:       stringPtrFlag(cmd, "description", description),
				Tags:              tagsFlag(cmd, tags),
				ExpectedUpdatedAt: at,
			}
			if req.Title == nil && req.Description == nil && req.Tags == nil {
				return fmt.Errorf("at least one of --title, --description, --tags must be specified")
			}

			var uc governance.UseCase
			if err := newClient(opts).patchJSON(cmd.Context(), r.itemPath(args[0]), req, &uc); err != nil {
				return fmt.Errorf("failed to update use case: %w", err)
			}
			return printUseCase(printer{w: cmd.OutOrStdout(), format: opts.outputFmt}, uc)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replacement tags")
	cmd.Flags().StringVar(&expected, "expected-updated-at", "", "Fail as stale unless updatedAt still equals this RFC 3339 time")
	return cmd
}
