package pubsub

import (
	"context"
	"encoding/json"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/projector"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "graph/<session>", "options")
	Type    string          `json:"type"`    // Event type (e.g., "graph_updated", "options_updated")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Event types
const (
	EventGraphUpdated   = "graph_updated"
	EventOptionsUpdated = "options_updated"
)

// Topics
const (
	GraphTopicPrefix = "graph/"
	OptionsTopic     = "options"
)

// GraphTopic is the per-session topic carrying graph refreshes
func GraphTopic(sessionID string) string {
	return GraphTopicPrefix + sessionID
}

// GraphUpdate is published after an integration operation changed a Data Map
type GraphUpdate struct {
	Operation string               `json:"operation"`
	Graph     *projector.GraphData `json:"graph"`
}

// OptionsUpdate is published when the vocabulary was reloaded from config
type OptionsUpdate struct {
	Source     string             `json:"source"` // config file that triggered the reload
	Vocabulary datamap.Vocabulary `json:"vocabulary"`
}
