package web

import (
	"fmt"
	"net/http"

	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/pubsub"
)

func (s *Server) handleSubscribeGraph(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, pubsub.GraphTopic(sessionFrom(r).ID))
}

func (s *Server) handleSubscribeOptions(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, pubsub.OptionsTopic)
}

// stream forwards events on topic until the client goes away or the publisher closes
func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	logging.DebugContext(r.Context(), "subscriber connected", "topic", topic)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "subscriber gone", "topic", topic, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
