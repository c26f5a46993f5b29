package main

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/worldlens/internal/mcp"
)

var flagNoStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query tools over MCP on stdio",
	Long:  "Runs a Model Context Protocol server on stdin/stdout. Sessions stay open between calls, so unchanged files are not recompiled.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "do not open the snapshot database")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ws := openWorkspace(cmd)
	defer ws.Close()

	var opts []mcp.Option
	if !flagNoStore {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, mcp.WithStore(st))
	}

	slogctx.Info(ctx, "serving MCP on stdio", "root", projectRoot, "engine", projectCfg.Engine.Binary)
	server := mcp.NewServer(ws, version, opts...)
	return server.Run(ctx, &sdk.StdioTransport{})
}
