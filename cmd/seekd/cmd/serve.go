package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seekd/seekd/internal/server"
	"github.com/seekd/seekd/internal/watcher"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the seekd HTTP server. Directories indexed through the API are
watched for changes and kept in sync automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mgr := watcher.NewManager(a.indexer, watcher.Options{
		DebounceWindow: time.Duration(cfg.Watcher.DebounceMS) * time.Millisecond,
	})
	defer mgr.Stop()

	// Directories registered in earlier runs resume watching on startup.
	dirs, err := a.reg.Directories(ctx)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := mgr.Watch(ctx, d.Path); err != nil {
			slog.Warn("failed to resume watch",
				slog.String("dir", d.Path),
				slog.String("error", err.Error()))
		}
	}

	srv, err := server.New(server.Options{
		Indexer:    a.indexer,
		Searcher:   a.engine,
		Embedder:   a.embedder,
		Store:      a.store,
		Registry:   a.reg,
		EmbedCache: a.embedder,
		Watcher:    mgr,
		Collection: cfg.VectorStore.Collection,
		Addr:       fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
