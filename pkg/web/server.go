package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/comments"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/metrics"
	"github.com/cvsubs74/dm-consent/pkg/pii"
	"github.com/cvsubs74/dm-consent/pkg/pubsub"
	"github.com/cvsubs74/dm-consent/pkg/session"
	"github.com/gorilla/mux"
)

//go:embed static/*
var staticFiles embed.FS

// Options wires the server to its collaborators. Comments and Summarizer may
// be nil when no database is available; the comment routes then answer 503.
type Options struct {
	Sessions   *session.Manager
	Publisher  *pubsub.SSEPublisher
	Comments   *comments.Store
	Summarizer *comments.Summarizer
	Classifier *pii.Classifier
	Metrics    *metrics.Metrics
}

// Server represents the web server
type Server struct {
	router     *mux.Router
	sessions   *session.Manager
	publisher  *pubsub.SSEPublisher
	comments   *comments.Store
	summarizer *comments.Summarizer
	classifier *pii.Classifier
	metrics    *metrics.Metrics
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	if opts.Publisher == nil {
		opts.Publisher = NewPublisher()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Classifier == nil {
		opts.Classifier = pii.NewClassifier(nil, opts.Metrics)
	}

	s := &Server{
		router:     mux.NewRouter(),
		sessions:   opts.Sessions,
		publisher:  opts.Publisher,
		comments:   opts.Comments,
		summarizer: opts.Summarizer,
		classifier: opts.Classifier,
		metrics:    opts.Metrics,
	}
	s.setupRoutes()
	return s
}

// NewPublisher creates the SSE publisher with the topic buffering the UI expects
func NewPublisher() *pubsub.SSEPublisher {
	p := pubsub.NewSSEPublisher()

	// graph/<session>: only the current graph matters to a new subscriber
	p.ConfigurePrefix(pubsub.GraphTopicPrefix, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	// options: replay the last reload so late subscribers refetch once
	p.ConfigureTopic(pubsub.OptionsTopic, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})
	return p
}

// Publisher returns the publisher used for SSE
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}

// Handler returns the root handler including request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/graph", s.withSession(s.handleSubscribeGraph)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/options", s.handleSubscribeOptions).Methods("GET")

	// Data Map
	s.router.HandleFunc("/api/options", s.withSession(s.handleOptions)).Methods("GET")
	s.router.HandleFunc("/api/datamap", s.withSession(s.handleDataMap)).Methods("GET")
	s.router.HandleFunc("/api/datamap/graph", s.withSession(s.handleGraph)).Methods("GET")
	s.router.HandleFunc("/api/datamap/graph.dot", s.withSession(s.handleGraphDOT)).Methods("GET")
	s.router.HandleFunc("/api/datamap/cycles", s.withSession(s.handleCycles)).Methods("GET")
	s.router.HandleFunc("/api/datamap/downstream/{name:.+}", s.withSession(s.handleDownstream)).Methods("GET")

	// Integration operations
	s.router.HandleFunc("/api/integrations/consent", s.withSession(s.handleConsent)).Methods("POST")
	s.router.HandleFunc("/api/integrations/cookies", s.withSession(s.handleCookies)).Methods("POST")
	s.router.HandleFunc("/api/integrations/dsar", s.withSession(s.handleDSAR)).Methods("POST")
	s.router.HandleFunc("/api/integrations/discovery", s.withSession(s.handleDiscovery)).Methods("POST")
	s.router.HandleFunc("/api/integrations/vendor-engagements", s.withSession(s.handleEngagement)).Methods("POST")
	s.router.HandleFunc("/api/integrations/processing-activities", s.withSession(s.handleProcessingActivity)).Methods("POST")
	s.router.HandleFunc("/api/integrations/models", s.withSession(s.handleModel)).Methods("POST")

	// Comments and summaries
	s.router.HandleFunc("/api/comments", s.handleListComments).Methods("GET")
	s.router.HandleFunc("/api/comments", s.handleAddComment).Methods("POST")
	s.router.HandleFunc("/api/comments/summary/{category}", s.handleGetSummary).Methods("GET")
	s.router.HandleFunc("/api/comments/summary/{category}", s.handleSummarize).Methods("POST")

	// PII identification
	s.router.HandleFunc("/api/pii/classify", s.handleClassify).Methods("POST")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("embedded static files missing", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Start serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	// SSE handlers watch the base context, so they end before Shutdown waits on them
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logging.Info("shutting down web server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
