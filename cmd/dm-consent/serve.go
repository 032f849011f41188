package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/comments"
	"github.com/cvsubs74/dm-consent/pkg/config"
	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/llm"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/metrics"
	"github.com/cvsubs74/dm-consent/pkg/pii"
	"github.com/cvsubs74/dm-consent/pkg/pubsub"
	"github.com/cvsubs74/dm-consent/pkg/session"
	"github.com/cvsubs74/dm-consent/pkg/watcher"
	"github.com/cvsubs74/dm-consent/pkg/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	// flag names match config keys so posflag can overlay them
	f := cmd.Flags()
	f.Int("port", 8080, "Port for the web server")
	f.Bool("open", false, "Open the UI in a browser once the server is up")
	f.Bool("watch", false, "Reload the vocabulary when the config file changes")
	f.String("db.driver", "sqlite", "Comment store driver: sqlite or mysql")
	f.String("db.dsn", "dm-consent.db", "Comment store DSN (sqlite path or mysql DSN)")
	f.String("llm.model", llm.DefaultModel, "Model used for classification and summaries")
	f.Duration("session.idle_timeout", 2*time.Hour, "Drop a session's Data Map after this much inactivity (0 keeps forever)")
	f.Int64("cookies.seed", 0, "Seed for the simulated cookie scanner (0 uses the clock)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()

	backend, err := newBackend(ctx, cfg, m)
	if err != nil {
		return fmt.Errorf("LLM backend: %w", err)
	}

	// The Data Map works without a database; only the comment routes need one
	var (
		store      *comments.Store
		summarizer *comments.Summarizer
	)
	store, err = comments.Open(ctx, comments.Options{
		Driver:         cfg.DB.Driver,
		DSN:            cfg.DB.DSN,
		ConnectTimeout: cfg.DB.ConnectTimeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("comment store unavailable, running without comments", "driver", cfg.DB.Driver, "error", err)
	} else {
		defer store.Close()
		summarizer = comments.NewSummarizer(store, backend)
	}

	vocabulary := config.NewVocabulary(cfg.Vocabulary)
	publisher := web.NewPublisher()
	defer publisher.Close()

	factory := web.NewSessionFactory(publisher,
		datamap.WithVocabulary(vocabulary.Get),
		datamap.WithVendorScanner(datamap.NewRandomVendorScanner(cfg.Cookies.Seed)),
		datamap.WithObserver(m),
	)

	var sessions *session.Manager
	sessions = session.NewManager(cfg.Session.IdleTimeout, factory,
		session.WithOnExpire(func(id string) {
			publisher.DropTopic(pubsub.GraphTopic(id))
			m.SetActiveSessions(sessions.Len())
		}),
	)

	server := web.NewServer(web.Options{
		Sessions:   sessions,
		Publisher:  publisher,
		Comments:   store,
		Summarizer: summarizer,
		Classifier: pii.NewClassifier(backend, m),
		Metrics:    m,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})
	g.Go(func() error {
		return sessions.Run(ctx)
	})

	if cfg.Watch {
		if cfg.File == "" {
			logging.Warn("--watch given but no config file was loaded, nothing to watch")
		} else {
			reloader := &watcher.VocabularyReloader{
				Path:       cfg.File,
				Vocabulary: vocabulary,
				Publisher:  publisher,
			}
			g.Go(func() error {
				return reloader.Run(ctx)
			})
		}
	}

	if cfg.OpenBrowser {
		go func() {
			// give the listener a moment before the browser hits it
			select {
			case <-time.After(500 * time.Millisecond):
				openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
			case <-ctx.Done():
			}
		}()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
