package watcher

import (
	"context"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/config"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/pubsub"
)

// Debounce timings for config reloads
const (
	QuietPeriod = 200 * time.Millisecond
	MaxWait     = 2 * time.Second
)

// VocabularyReloader re-reads the config file and swaps in its vocabulary.
// Other settings need a restart; only the form vocabulary is live.
type VocabularyReloader struct {
	Path       string
	Vocabulary *config.Vocabulary
	Publisher  pubsub.Publisher
}

// Reload applies one debounced change event
func (r *VocabularyReloader) Reload(event ChangeEvent) error {
	if event.Type == ChangeTypeRemoved {
		logging.Warn("config file removed, keeping current vocabulary", "path", r.Path)
		return nil
	}

	cfg, err := config.LoadFile(r.Path)
	if err != nil {
		return err
	}
	r.Vocabulary.Set(cfg.Vocabulary)

	logging.Info("vocabulary reloaded", "path", r.Path,
		"dataElements", len(cfg.Vocabulary.DataElements),
		"vendors", len(cfg.Vocabulary.Vendors))

	if r.Publisher != nil {
		return r.Publisher.Publish(pubsub.OptionsTopic, pubsub.EventOptionsUpdated, pubsub.OptionsUpdate{
			Source:     r.Path,
			Vocabulary: r.Vocabulary.Get(),
		})
	}
	return nil
}

// Run watches r.Path and reloads on every debounced change until ctx is done.
// A broken config file is logged and skipped; the previous vocabulary stays.
func (r *VocabularyReloader) Run(ctx context.Context) error {
	fw, err := NewFileWatcher(r.Path)
	if err != nil {
		return err
	}
	fw.Start(ctx)

	debouncer := NewDebouncer(fw.Events(), QuietPeriod, MaxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		if err := r.Reload(event); err != nil {
			logging.Error("failed to reload config", "path", r.Path, "error", err)
		}
	}
	return nil
}
