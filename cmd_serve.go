package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"skinbuilder/scraper"
	"skinbuilder/server"
)

func newServeCmd(cfg *config, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [--port <port>]",
		Short: "Serves the render and extract endpoints over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBuilder(cfg, logger)
			if err != nil {
				return err
			}

			srvCfg := &server.Config{
				Builder:      b,
				Logger:       logger,
				ForumBaseURL: cfg.forumBaseURL,
			}
			if cfg.forumBaseURL != "" {
				client := &http.Client{
					Timeout:       30 * time.Second,
					CheckRedirect: server.RedirectPolicy(cfg.forumBaseURL),
				}
				srvCfg.Fetcher = scraper.New(client, logger)
			} else {
				logger.Info("No FORUM_BASE_URL set, URL fetching disabled")
			}

			return server.New(srvCfg).ListenAndServe(cmd.Context(), cfg.port)
		},
	}
	cmd.Flags().StringVar(&cfg.port, "port", cfg.port, "Port to listen on (PORT)")
	return cmd
}
