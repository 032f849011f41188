package main

import (
	"context"
	"errors"
	"os"

	"github.com/cvsubs74/dm-consent/pkg/config"
	"github.com/cvsubs74/dm-consent/pkg/llm"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/metrics"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dm-consent",
		Short: "Privacy data mapping demo",
		Long: `dm-consent builds a per-session Data Map from simulated privacy
integrations (consent, cookie scans, DSAR, data discovery, vendor
engagement), shows it as a graph, and collects categorized feedback
with LLM summaries.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	pf.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	pf.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	pf.Bool("json_logs", false, "Log as JSON instead of the compact console format")

	root.AddCommand(newServeCmd(), newReplayCmd(), newClassifyCmd())
	return root
}

// loadConfig reads the merged configuration for cmd and sets up logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Options{Level: level, JSON: cfg.JSONLogs, Output: os.Stderr})

	if cfg.File != "" {
		logging.Debug("loaded config file", "path", cfg.File)
	}
	return cfg, nil
}

// newBackend connects to the hosted model, or returns nil when no key is set.
// Calls are timed into m when m is not nil.
func newBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (llm.Completer, error) {
	key := cfg.LLM.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}

	client, err := llm.New(ctx, llm.Options{APIKey: key, Model: cfg.LLM.Model, Timeout: cfg.LLM.Timeout})
	if errors.Is(err, llm.ErrNotConfigured) {
		logging.Warn("no LLM API key set, classification and summaries are disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logging.Info("LLM backend ready", "model", client.Model())

	if m == nil {
		return client, nil
	}
	return llm.Timed(client, "completion", m.ObserveLLM), nil
}
