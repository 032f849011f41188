package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cvsubs74/dm-consent/pkg/comments"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/gorilla/mux"
)

type summaryResponse struct {
	Category  string `json:"category"`
	Available bool   `json:"available"`
	Summary   string `json:"summary,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (s *Server) commentsAvailable(w http.ResponseWriter) bool {
	if s.comments == nil {
		writeError(w, http.StatusServiceUnavailable, "comment store not available")
		return false
	}
	return true
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	if !s.commentsAvailable(w) {
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		category = comments.All
	}
	limit := comments.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	list, err := s.comments.GetComments(r.Context(), category, limit)
	if errors.Is(err, comments.ErrInvalidCategory) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logging.ErrorContext(r.Context(), "failed to list comments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read comments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category":   category,
		"categories": comments.Categories,
		"comments":   list,
	})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if !s.commentsAvailable(w) {
		return
	}

	var input struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	c, err := s.comments.AddComment(r.Context(), input.Text, input.Category)
	switch {
	case errors.Is(err, comments.ErrEmptyComment), errors.Is(err, comments.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logging.ErrorContext(r.Context(), "failed to add comment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store comment")
		return
	}

	s.metrics.IncrementComments(c.Category)
	writeJSON(w, http.StatusCreated, c)
}

// handleGetSummary never fails on a read problem; it reports the summary as unavailable
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if !s.commentsAvailable(w) {
		return
	}
	category := mux.Vars(r)["category"]
	if !comments.ValidCategory(category) {
		writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(category))
		return
	}

	summary, err := s.comments.GetCategorySummary(r.Context(), category)
	if err != nil {
		if !errors.Is(err, comments.ErrNoSummary) {
			logging.WarnContext(r.Context(), "failed to read summary", "category", category, "error", err)
		}
		writeJSON(w, http.StatusOK, summaryResponse{Category: category, Reason: comments.ErrNoSummary.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Category: category, Available: true, Summary: summary})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if !s.commentsAvailable(w) {
		return
	}
	category := mux.Vars(r)["category"]
	if !comments.ValidCategory(category) {
		writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(category))
		return
	}
	if s.summarizer == nil {
		writeJSON(w, http.StatusOK, summaryResponse{Category: category, Reason: comments.ErrNoSummary.Error()})
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), category)
	s.metrics.ObserveSummary(category, err)
	if err != nil {
		logging.WarnContext(r.Context(), "summary not generated", "category", category, "error", err)
		reason := comments.ErrNoSummary.Error()
		if errors.Is(err, comments.ErrNoComments) {
			reason = err.Error()
		}
		writeJSON(w, http.StatusOK, summaryResponse{Category: category, Reason: reason})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Category: category, Available: true, Summary: summary})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	category := s.classifier.Classify(r.Context(), input.Text)
	writeJSON(w, http.StatusOK, map[string]string{"category": string(category)})
}
