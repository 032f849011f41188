package web

import (
	"context"
	"net/http"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/projector"
	"github.com/gorilla/mux"
)

// integrationResponse is returned by every successful integration operation
type integrationResponse struct {
	Result datamap.Result       `json:"result"`
	Graph  *projector.GraphData `json:"graph"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var opts datamap.Options
	view(r, func(in *datamap.Integrations) {
		opts = in.Options()
	})
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleDataMap(w http.ResponseWriter, r *http.Request) {
	var snap datamap.Snapshot
	view(r, func(in *datamap.Integrations) {
		snap = in.Store().Snapshot()
	})
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.project(r))
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	out, err := projector.RenderDOT(s.project(r))
	if err != nil {
		logging.ErrorContext(r.Context(), "failed to render DOT", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render graph")
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	if _, err := w.Write(out); err != nil {
		logging.WarnContext(r.Context(), "failed to write DOT", "error", err)
	}
}

func (s *Server) handleDownstream(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var downstream []string
	view(r, func(in *datamap.Integrations) {
		downstream = in.Store().Downstream(name)
	})
	if downstream == nil {
		downstream = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       name,
		"downstream": downstream,
	})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	var cycles [][]string
	view(r, func(in *datamap.Integrations) {
		cycles = in.Store().Cycles()
	})
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (s *Server) project(r *http.Request) *projector.GraphData {
	var g *projector.GraphData
	view(r, func(in *datamap.Integrations) {
		g = projector.Project(in.Store())
	})
	return g
}

// integrate runs op against the session's Data Map and answers with the
// result and the refreshed graph, both taken under the session lock.
func (s *Server) integrate(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error)) {

	var resp integrationResponse
	err := sessionFrom(r).Do(func(in *datamap.Integrations) error {
		result, err := op(r.Context(), in)
		if err != nil {
			return err
		}
		resp = integrationResponse{Result: result, Graph: projector.Project(in.Store())}
		return nil
	})
	if err != nil {
		writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	var input datamap.ConsentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.Consent(ctx, input)
	})
}

func (s *Server) handleCookies(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Domain string `json:"domain"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.ScanCookies(ctx, input.Domain)
	})
}

func (s *Server) handleDSAR(w http.ResponseWriter, r *http.Request) {
	var input datamap.DSARInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.SubmitDSAR(ctx, input)
	})
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var input datamap.DiscoveryInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.DiscoverData(ctx, input)
	})
}

func (s *Server) handleEngagement(w http.ResponseWriter, r *http.Request) {
	var input datamap.EngagementInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.EngageVendors(ctx, input)
	})
}

func (s *Server) handleProcessingActivity(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.CreateProcessingActivity(ctx, input.Name)
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	var input datamap.ModelInput
	if !decodeJSON(w, r, &input) {
		return
	}
	s.integrate(w, r, func(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
		return in.CreateModel(ctx, input)
	})
}
