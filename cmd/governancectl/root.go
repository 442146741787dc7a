package main

import (
	"os"

	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every command.
type options struct {
	serverURL    string
	outputFmt    string
	user         string
	roles        string
	businessUnit string
	token        string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "governancectl",
		Short: "CLI for the governance server",
		Long: `governancectl drives business use cases and MCP servers through their
approval lifecycles on a governance server.

In header mode the caller identity is sent as X-User-Email, X-User-Roles and
X-User-Business-Unit. In JWT mode pass --token instead.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.serverURL, "server", envOrDefault("GOVERNANCE_SERVER", "http://localhost:8080"), "Governance server URL")
	flags.StringVarP(&opts.outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	flags.StringVar(&opts.user, "user", os.Getenv("GOVERNANCE_USER"), "Caller email")
	flags.StringVar(&opts.roles, "roles", os.Getenv("GOVERNANCE_ROLES"), "Caller roles, comma separated")
	flags.StringVar(&opts.businessUnit, "business-unit", os.Getenv("GOVERNANCE_BUSINESS_UNIT"), "Caller business unit display name")
	flags.StringVar(&opts.token, "token", os.Getenv("GOVERNANCE_TOKEN"), "Bearer token for JWT auth mode")

	cmd.AddCommand(
		newEntityCmd(opts, useCaseResource),
		newEntityCmd(opts, mcpServerResource),
		newPendingCmd(opts),
		newLifecycleCmd(opts),
		newWhoAmICmd(opts),
		newRolesCmd(opts),
		newBusinessUnitsCmd(opts),
		newEventsCmd(opts),
		newHealthCmd(opts),
	)
	return cmd
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
