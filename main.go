// Command skinbuilder restyles legacy Jcink board pages: it extracts the mod
// team, active topics and topic header from stock markup and renders them as
// themed fragments.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"

	"skinbuilder/assemble"
	"skinbuilder/builder"
	"skinbuilder/layout"
	"skinbuilder/render"
)

// config is read from the environment; command flags override it.
type config struct {
	port         string
	forumBaseURL string
	layoutFile   string
	rowPolicy    string
	sanitize     bool
	logLevel     string
}

func configFromEnv() *config {
	sanitize, err := strconv.ParseBool(envOr("SANITIZE_PASSTHROUGH", "false"))
	if err != nil {
		sanitize = false
	}
	return &config{
		port:         envOr("PORT", "8080"),
		forumBaseURL: os.Getenv("FORUM_BASE_URL"),
		layoutFile:   os.Getenv("LAYOUT_FILE"),
		rowPolicy:    envOr("ROW_POLICY", "fail-fast"),
		sanitize:     sanitize,
		logLevel:     envOr("LOG_LEVEL", "info"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

// newBuilder wires the pipeline from cfg.
func newBuilder(cfg *config, logger *slog.Logger) (*builder.Builder, error) {
	l := layout.Default()
	if cfg.layoutFile != "" {
		var err error
		l, err = layout.Load(cfg.layoutFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded layout override", "path", cfg.layoutFile)
	}

	policy, err := assemble.ParsePolicy(cfg.rowPolicy)
	if err != nil {
		return nil, err
	}

	var opts []render.Option
	if cfg.sanitize {
		opts = append(opts, render.WithSanitizer(bluemonday.UGCPolicy()))
	}

	return builder.New(assemble.New(l, policy, logger), render.New(opts...), logger), nil
}

func newRootCmd(cfg *config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "skinbuilder",
		Short:        "skinbuilder restyles Jcink forum pages into themed fragments.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfg.layoutFile, "layout", cfg.layoutFile, "YAML layout override (LAYOUT_FILE)")
	root.PersistentFlags().StringVar(&cfg.rowPolicy, "policy", cfg.rowPolicy, "Row policy: fail-fast or skip-invalid (ROW_POLICY)")
	root.PersistentFlags().BoolVar(&cfg.sanitize, "sanitize", cfg.sanitize, "Sanitize passthrough markup (SANITIZE_PASSTHROUGH)")

	root.AddCommand(
		newRenderCmd(cfg, logger),
		newExtractCmd(cfg, logger),
		newServeCmd(cfg, logger),
	)
	return root
}

func main() {
	// Optional; real environment wins.
	_ = godotenv.Load(".env")

	cfg := configFromEnv()
	logger := newLogger(os.Stderr, cfg.logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(cfg, logger).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
