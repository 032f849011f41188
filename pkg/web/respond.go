package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/logging"
)

// maxBodyBytes bounds request bodies; every form here is tiny
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error     string               `json:"error"`
	Operation string               `json:"operation,omitempty"`
	Fields    []datamap.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeOperationError maps validation failures to 400 and anything else to 500
func writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *datamap.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     ve.Error(),
			Operation: ve.Operation,
			Fields:    ve.Fields,
		})
		return
	}
	logging.ErrorContext(r.Context(), "operation failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "operation failed")
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("invalid JSON body: %v", err)
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
