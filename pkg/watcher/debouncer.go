package watcher

import (
	"context"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/logging"
)

// Debouncer batches rapid file system events so an editor save that
// produces several events triggers a single reload.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run accumulates events until the input has been quiet for quietPeriod,
// or maxWait has passed since the first pending event.
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet    <-chan time.Time
		deadline <-chan time.Time
		pending  []string
		seen     = make(map[string]bool)
		last     = ChangeTypeWritten
		count    int
	)

	flush := func() {
		quiet, deadline = nil, nil
		if count == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", count, "paths", len(pending))
		select {
		case d.output <- ChangeEvent{Type: last, Paths: pending, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
		pending, seen, count = nil, make(map[string]bool), 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					pending = append(pending, p)
				}
			}
			// the latest event decides whether the file still exists
			last = event.Type
			count++

			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
