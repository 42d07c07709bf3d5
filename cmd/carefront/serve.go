package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stillcare/carefront/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			catalogue, err := a.catalogue(ctx)
			if err != nil {
				return err
			}
			store, err := a.rules()
			if err != nil {
				return err
			}
			client, err := a.dataService()
			if err != nil {
				return err
			}

			srv, err := server.New(server.Deps{
				Catalogue: catalogue,
				Rules:     store,
				Submitter: client,
				Metrics:   a.metrics,
				Logger:    a.logger,

				TemplatesDir: a.cfg.TemplatesDir,
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx, a.cfg.HTTPAddr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default CAREFRONT_HTTP_ADDR)")
	return cmd
}

