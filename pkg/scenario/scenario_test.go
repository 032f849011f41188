package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/google/go-cmp/cmp"
)

const loanDemo = `
name: loan demo
scanned_vendors: [Google, Meta]
steps:
  - consent:
      collection_point: example.com/signup
      purpose: Direct Marketing
      data_elements: [Email, Name]
  - cookies: {domain: example.com}
  - dsar: {request_type: Access Request, data_elements: [Email]}
  - discovery: {data_source: crm, piis: [SSN]}
  - vendor_engagement: {name: Payments, vendors: [Salesforce]}
  - processing_activity: {name: Payroll}
  - model: {name: RiskModel, description: scores loans, purpose: Loan Approval Process}
  - consent: {purpose: missing the rest}
`

func TestReplay(t *testing.T) {
	sc, err := Parse(strings.NewReader(loanDemo))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sc.Name != "loan demo" || len(sc.Steps) != 8 {
		t.Fatalf("parsed %+v", sc)
	}

	store := datamap.NewStore()
	in := datamap.NewIntegrations(store, datamap.WithVendorScanner(sc.Scanner()))

	var ops []string
	sum, err := sc.Replay(context.Background(), in, func(_ int, op string, _ datamap.Result, _ error) {
		ops = append(ops, op)
	})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if sum.Applied != 7 || sum.Rejected != 1 {
		t.Errorf("summary = %+v", sum)
	}

	wantOps := []string{
		datamap.OpConsent, datamap.OpScanCookies, datamap.OpDSAR, datamap.OpDataDiscovery,
		datamap.OpVendorEngagement, datamap.OpCreateProcessingActivity, datamap.OpCreateModel, datamap.OpConsent,
	}
	if diff := cmp.Diff(wantOps, ops); diff != "" {
		t.Errorf("ops (-want +got):\n%s", diff)
	}

	if !store.HasLink("Loan Approval Process", "RiskModel") {
		t.Error("model link missing")
	}
	if diff := cmp.Diff([]string{"Google", "Meta", "Salesforce"}, store.Vendors()); diff != "" {
		t.Errorf("vendors (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"empty":          ``,
		"two operations": "steps:\n  - cookies: {domain: a}\n    dsar: {request_type: x}\n",
		"no operation":   "steps:\n  - {}\n",
		"unknown field":  "steps:\n  - cookies: {domian: a}\n",
	}
	for name, doc := range tests {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := os.WriteFile(path, []byte(loanDemo), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(path)
	if err != nil || len(sc.Steps) != 8 {
		t.Fatalf("Load() = %+v, %v", sc, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	sc, err := Parse(strings.NewReader(loanDemo))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := sc.Replay(ctx, datamap.NewIntegrations(datamap.NewStore()), nil)
	if err == nil || sum.Applied != 0 {
		t.Errorf("Replay() = %+v, %v", sum, err)
	}
}
