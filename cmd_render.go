package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"skinbuilder/builder"
	"skinbuilder/scraper"
)

// source selects where a command reads its page from.
type source struct {
	page string
	in   string
	url  string
}

func (s *source) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.page, "page", "", "Page kind: mod-team, active-topics or topic")
	cmd.Flags().StringVar(&s.in, "in", "-", "HTML file to read, - for stdin")
	cmd.Flags().StringVar(&s.url, "url", "", "Fetch the page from this URL instead of --in")
	if err := cmd.MarkFlagRequired("page"); err != nil {
		panic(err)
	}
}

func (s *source) document(cmd *cobra.Command, logger *slog.Logger) (*goquery.Document, error) {
	if s.url != "" {
		sc := scraper.New(&http.Client{Timeout: 30 * time.Second}, logger)
		return sc.Fetch(cmd.Context(), s.url)
	}

	var r io.Reader = cmd.InOrStdin()
	if s.in != "-" && s.in != "" {
		f, err := os.Open(s.in)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn("Failed to close input", "path", s.in, "error", err)
			}
		}()
		r = f
	}
	return scraper.Parse(r)
}

func newRenderCmd(cfg *config, logger *slog.Logger) *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "render --page <kind> [--in file | --url url]",
		Short: "Renders a page's records as themed HTML fragments.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := builder.ParsePage(src.page)
			if err != nil {
				return err
			}
			b, err := newBuilder(cfg, logger)
			if err != nil {
				return err
			}
			doc, err := src.document(cmd, logger)
			if err != nil {
				return err
			}

			fragments, err := b.Build(doc.Selection, page)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range fragments {
				if err := f.Render(out); err != nil {
					return err
				}
				if _, err := io.WriteString(out, "\n"); err != nil {
					return err
				}
			}
			return nil
		},
	}
	src.bind(cmd)
	return cmd
}

func newExtractCmd(cfg *config, logger *slog.Logger) *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "extract --page <kind> [--in file | --url url]",
		Short: "Prints a page's records as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := builder.ParsePage(src.page)
			if err != nil {
				return err
			}
			b, err := newBuilder(cfg, logger)
			if err != nil {
				return err
			}
			doc, err := src.document(cmd, logger)
			if err != nil {
				return err
			}

			records, err := b.Records(doc.Selection, page)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return fmt.Errorf("encode records: %w", err)
			}
			return nil
		},
	}
	src.bind(cmd)
	return cmd
}
