package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/pii"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation(datamap.OpConsent, nil)
	m.ObserveOperation(datamap.OpConsent, nil)
	m.ObserveOperation(datamap.OpConsent, &datamap.ValidationError{Operation: datamap.OpConsent})
	m.ObserveOperation(datamap.OpScanCookies, errors.New("scanner down"))

	tests := []struct {
		op, result string
		want       float64
	}{
		{datamap.OpConsent, "ok", 2},
		{datamap.OpConsent, "rejected", 1},
		{datamap.OpScanCookies, "error", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues(tt.op, tt.result)); got != tt.want {
			t.Errorf("operations{%s,%s} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues(datamap.OpConsent)); got != 1 {
		t.Errorf("validation failures = %v", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	a, b := New(), New()
	a.ObserveClassification(pii.Email)
	if got := testutil.ToFloat64(b.Classifications.WithLabelValues(string(pii.Email))); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.IncrementComments("DSAR")
	m.ObserveSummary("DSAR", nil)
	m.ObserveLLM("classify", 300*time.Millisecond)
	m.SetActiveSessions(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`dm_comments_total{category="DSAR"} 1`,
		`dm_summaries_total{category="DSAR",result="ok"} 1`,
		`dm_active_sessions 3`,
		`dm_llm_request_latency_seconds_count{purpose="classify"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
