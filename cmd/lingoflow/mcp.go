package main

import (
	"github.com/felixgeelhaar/mcp-go"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	mcptools "github.com/felixgeelhaar/lingoflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server for AI agent integration.

The MCP server lets an agent walk a learner through the lingoflow wizards
one step at a time. Drafts are shared with the terminal commands, so a
session started by an agent can be finished with --session and vice versa.

Available tools:
  - lingoflow_wizards   List the wizards
  - lingoflow_plans     List subscription plans
  - lingoflow_status    Server status, or the current step of a session
  - lingoflow_whoami    Show the signed-in learner
  - lingoflow_start     Start or resume a wizard session
  - lingoflow_update    Set field values on the current step
  - lingoflow_advance   Validate and move to the next step
  - lingoflow_retreat   Go back one step
  - lingoflow_submit    Submit the last step (requires confirm=true)
  - lingoflow_resend_code  Send a new registration e-mail code
  - lingoflow_drafts    List saved sessions
  - lingoflow_discard   Delete a saved session

Examples:
  lingoflow mcp                     # Start stdio MCP server
  lingoflow mcp --http :8080        # Start HTTP MCP server`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpHTTP string

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "Start HTTP server on address (e.g., :8080)")
}

// newMCPServer creates the MCP server with every lingoflow tool.
func newMCPServer(l *app.Lingoflow, sessions *mcptools.Sessions) *mcp.Server {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "lingoflow",
		Version: version,
	})
	mcptools.RegisterAll(srv, l, sessions, mcptools.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	return srv
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		ctx := cmd.Context()

		sessions := mcptools.NewSessions(l)
		defer sessions.CloseAll()
		srv := newMCPServer(l, sessions)

		// Serve based on transport
		if mcpHTTP != "" {
			return mcp.ServeHTTP(ctx, srv, mcpHTTP)
		}

		// Default to stdio
		return mcp.ServeStdio(ctx, srv)
	})
}
