package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sakif/snippet-oracle/internal/config"
	"github.com/sakif/snippet-oracle/internal/handler"
	"github.com/sakif/snippet-oracle/internal/metrics"
	"github.com/sakif/snippet-oracle/internal/search"
	"github.com/sakif/snippet-oracle/internal/server"
	"github.com/sakif/snippet-oracle/internal/service"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Resolve a search query and print the matches as JSON",
		Long: `Resolve a query against the store and print {"results":[...]}.

Terms are separated by whitespace:
  name     snippet name starts with "name"
  :tag     snippet carries the tag "tag"
  -text    snippet description contains "text"

Put "--" before the query when it starts with a description term, so the
leading "-" is not read as a flag.`,
		Example: `  snippetctl search sort :algo
  snippetctl search -- -quick
  snippetctl search --mode precedence -- sort :algo -hash`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, mode, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "",
		"how query categories combine: conjunctive or precedence (default from config)")

	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, mode, query string) error {
	path := root.configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if mode != "" {
		if cfg.Search.Mode, err = search.ParseMode(mode); err != nil {
			return fmt.Errorf("--mode: %w", err)
		}
	}

	// Logs go to stderr so stdout stays pure JSON.
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))

	store, err := server.OpenStore(cmd.Context(), cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	// One query per process, so the cache stays off.
	svc := service.NewSearchService(store, service.SearchOptions{Mode: cfg.Search.Mode},
		metrics.New(prometheus.NewRegistry()), logger)

	results, err := svc.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(handler.SearchResponse{Results: results})
}
