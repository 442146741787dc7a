package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

// resource describes one governed entity collection. Commands that behave
// the same for both kinds are built from it; kind specific commands come
// from the constructor fields.
type resource struct {
	use       string
	aliases   []string
	singular  string
	path      string
	approvals bool

	newList   func(opts *options, r resource) *cobra.Command
	newGet    func(opts *options, r resource) *cobra.Command
	newCreate func(opts *options, r resource) *cobra.Command
	newUpdate func(opts *options, r resource) *cobra.Command
}

func (r resource) itemPath(id string) string {
	return fmt.Sprintf("%s%s/%s", governanceAPIBase, r.path, url.PathEscape(id))
}

func newEntityCmd(opts *options, r resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:     r.use,
		Aliases: r.aliases,
		Short:   fmt.Sprintf("Manage %ss", r.singular),
	}
	cmd.AddCommand(
		r.newList(opts, r),
		r.newGet(opts, r),
		r.newCreate(opts, r),
		r.newUpdate(opts, r),
		newDeleteCmd(opts, r),
		newTransitionCmd(opts, r),
		newPermissionsCmd(opts, r),
	)
	if r.approvals {
		cmd.AddCommand(newApprovalsCmd(opts, r))
	}
	return cmd
}

// listQuery holds the filters shared by both list commands.
type listQuery struct {
	states    []string
	owner     string
	bu        string
	pageSize  int
	pageToken string
}

func (q *listQuery) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&q.states, "state", nil, "Filter by state (repeatable or comma separated)")
	cmd.Flags().StringVar(&q.owner, "owner", "", "Filter by owner email")
	cmd.Flags().StringVar(&q.bu, "bu", "", "Filter by business unit id")
	cmd.Flags().IntVar(&q.pageSize, "page-size", 0, "Maximum items per page")
	cmd.Flags().StringVar(&q.pageToken, "page-token", "", "Token from a previous page")
}

func (q *listQuery) values() url.Values {
	v := url.Values{}
	if len(q.states) > 0 {
		v.Set("state", strings.Join(q.states, ","))
	}
	if q.owner != "" {
		v.Set("owner", q.owner)
	}
	if q.bu != "" {
		v.Set("buId", q.bu)
	}
	if q.pageSize > 0 {
		v.Set("pageSize", fmt.Sprint(q.pageSize))
	}
	if q.pageToken != "" {
		v.Set("pageToken", q.pageToken)
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func newDeleteCmd(opts *options, r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", r.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(opts).delete(cmd.Context(), r.itemPath(args[0])); err != nil {
				return fmt.Errorf("failed to delete %s: %w", r.singular, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", r.singular, args[0])
			return nil
		},
	}
}

func newTransitionCmd(opts *options, r resource) *cobra.Command {
	var (
		comments string
		reason   string
		expected string
	)
	cmd := &cobra.Command{
		Use:   "transition <id> <edge>",
		Short: fmt.Sprintf("Follow a lifecycle edge on a %s", r.singular),
		Long: fmt.Sprintf(`Follow a lifecycle edge on a %s.

Run "governancectl lifecycle" to list the edges of each graph.`, r.singular),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := governance.TransitionRequest{
				Edge:     governance.Edge(strings.ToLower(strings.TrimSpace(args[1]))),
				Comments: comments,
				Reason:   reason,
			}
			at, err := expectedFlag(expected)
			if err != nil {
				return err
			}
			body.ExpectedUpdatedAt = at

			var result governance.TransitionResult
			if err := newClient(opts).postJSON(cmd.Context(), r.itemPath(args[0])+"/transition", body, &result); err != nil {
				return fmt.Errorf("failed to %s %s: %w", body.Edge, r.singular, err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			fmt.Fprintf(p.w, "%s %s: %s -> %s (%s)\n", r.singular, result.EntityID, result.FromState, result.State, result.Edge)
			return nil
		},
	}
	cmd.Flags().StringVar(&comments, "comments", "", "Reviewer comments recorded with the decision")
	cmd.Flags().StringVar(&reason, "reason", "", "Deprecation reason")
	cmd.Flags().StringVar(&expected, "expected-updated-at", "", "Fail as stale unless updatedAt still equals this RFC 3339 time")
	return cmd
}

func newPermissionsCmd(opts *options, r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <id>",
		Short: fmt.Sprintf("Show what the caller may do with a %s", r.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var perms governance.Permissions
			if err := newClient(opts).getJSON(cmd.Context(), r.itemPath(args[0])+"/permissions", &perms); err != nil {
				return fmt.Errorf("failed to get permissions: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(perms)
			}
			edges := make([]string, len(perms.AvailableEdges))
			for i, e := range perms.AvailableEdges {
				edges[i] = string(e)
			}
			p.printTable([]string{"Can Edit", "Can Approve", "Can Delete", "Edges"}, [][]string{{
				fmt.Sprint(perms.CanEdit),
				fmt.Sprint(perms.CanApprove),
				fmt.Sprint(perms.CanDelete),
				strings.Join(edges, ", "),
			}})
			return nil
		},
	}
}

func newApprovalsCmd(opts *options, r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "approvals <id>",
		Short: fmt.Sprintf("List the approval ledger of a %s", r.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				EntityID string                      `json:"entityId"`
				Items    []governance.ApprovalRecord `json:"items"`
				Size     int                         `json:"size"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), r.itemPath(args[0])+"/approvals", &result); err != nil {
				return fmt.Errorf("failed to list approvals: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			rows := make([][]string, 0, len(result.Items))
			for _, a := range result.Items {
				rows = append(rows, []string{
					string(a.ApproverRole),
					string(a.Action),
					a.ApproverEmail,
					truncate(a.Comments, 40),
					formatTime(a.CreatedAt),
				})
			}
			p.printTable([]string{"Role", "Action", "Approver", "Comments", "Created"}, rows)
			fmt.Fprintf(p.w, "Total: %d\n", result.Size)
			return nil
		},
	}
}

// stringPtrFlag returns a pointer to the flag's value when it was set.
func stringPtrFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func tagsFlag(cmd *cobra.Command, tags []string) *[]string {
	if !cmd.Flags().Changed("tags") {
		return nil
	}
	if tags == nil {
		tags = []string{}
	}
	return &tags
}

func expectedFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("--expected-updated-at: %w", err)
	}
	return &t, nil
}
