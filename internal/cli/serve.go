package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/cardsight/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the card tools over MCP on stdin/stdout",
		Long: `Serve the card tools over the Model Context Protocol.

Requests are read from stdin and responses written to stdout, one JSON-RPC
message per line. Logs go to stderr. Configure the command in an MCP client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			srv := server.New(p, a.log)
			srv.Version = a.info.Version
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
