package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(opts)

			var healthResp map[string]any
			if err := client.getJSON(cmd.Context(), "/healthz", &healthResp); err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}

			var readyResp map[string]any
			if err := client.getJSON(cmd.Context(), "/readyz", &readyResp); err != nil {
				// The server may still be migrating.
				readyResp = map[string]any{"status": "not_ready", "error": err.Error()}
			}

			p := printer{w: cmd.OutOrStdout(), format: opts.outputFmt}
			if p.structured() {
				return p.print(map[string]any{
					"health":    healthResp,
					"readiness": readyResp,
				})
			}

			status, _ := healthResp["status"].(string)
			uptime, _ := healthResp["uptime"].(string)
			ready, _ := readyResp["status"].(string)
			p.printTable([]string{"Check", "Status"}, [][]string{
				{"Liveness", status},
				{"Uptime", uptime},
				{"Readiness", ready},
			})
			return nil
		},
	}
}
