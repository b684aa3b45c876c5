package main

import (
	"log/slog"

	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reshape pipeline over HTTP",
		Long: `Start an HTTP server exposing the pipeline:

  POST /api/reshape    multipart "file" (+ boundary_account, sentinel,
                       metadata_rows, format=json|xlsx|csv)
  POST /api/normalize  multipart "file"
  GET  /healthz

Nothing is stored; each request is processed on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}

			return server.ListenAndServe(cmd.Context(), *cfg, slog.Default())
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")

	return cmd
}
