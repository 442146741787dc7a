package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

func newEventsCmd(opts *options) *cobra.Command {
	var (
		kind, entityID, actor string
		pageSize              int
		pageToken             string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List lifecycle transition events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := url.Values{}
			for key, val := range map[string]string{"kind": kind, "entityId": entityID, "actor": actor, "pageToken": pageToken} {
				if val != "" {
					v.Set(key, val)
				}
			}
			if pageSize > 0 {
				v.Set("pageSize", fmt.Sprint(pageSize))
			}

			var result struct {
				Events        []governance.TransitionEvent `json:"events"`
				NextPageToken string                       `json:"nextPageToken,omitempty"`
				Size          int                          `json:"size"`
			}
			if err := newClient(opts).getJSON(cmd.Context(), withQuery(auditAPIBase+"/events", v), &result); err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(result)
			}
			rows := make([][]string, 0, len(result.Events))
			for _, e := range result.Events {
				rows = append(rows, []string{
					formatTime(e.CreatedAt),
					string(e.EntityKind),
					e.EntityID,
					string(e.Edge),
					fmt.Sprintf("%s -> %s", e.FromState, e.ToState),
					e.Actor,
					strings.Join(e.ActorRoles, ", "),
				})
			}
			p.printTable([]string{"Time", "Kind", "Entity", "Edge", "Change", "Actor", "Roles"}, rows)
			if result.NextPageToken != "" {
				fmt.Fprintf(p.w, "Next page: --page-token %s\n", result.NextPageToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Entity kind (use_case or mcp_server)")
	cmd.Flags().StringVar(&entityID, "entity", "", "Entity id")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor email")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Maximum events per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token from a previous page")
	return cmd
}
