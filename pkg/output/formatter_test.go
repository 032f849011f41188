package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestPrintDataMap(t *testing.T) {
	store := datamap.NewStore()
	store.UpsertEntity(datamap.Assets, "example.com", []string{"Email", "SSN"})
	store.UpsertEntity(datamap.ProcessingActivities, "Marketing", nil)
	store.AddLink("Marketing", "example.com")
	store.AddVendor("Google")
	store.AddModel("RiskModel", "desc", "Loan Approval")

	var buf bytes.Buffer
	PrintDataMap(&buf, store)
	out := buf.String()

	for _, want := range []string{
		"Assets (1)",
		"example.com: Email, SSN",
		"Vendors (1)",
		"RiskModel  purpose: Loan Approval",
		"Links (2)",
		"Marketing -> example.com",
		"Unresolved link endpoints: Loan Approval",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintDataMapCircularFlow(t *testing.T) {
	store := datamap.NewStore()
	store.AddLink("Payroll", "Acme")
	store.AddLink("Acme", "Payroll")

	var buf bytes.Buffer
	PrintDataMap(&buf, store)
	if !strings.Contains(buf.String(), "Circular flow: Payroll -> Acme -> Payroll") {
		t.Errorf("cycle not reported:\n%s", buf.String())
	}
}

func TestPrintEmptyDataMap(t *testing.T) {
	var buf bytes.Buffer
	PrintDataMap(&buf, datamap.NewStore())
	if !strings.Contains(buf.String(), "(empty)") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintStep(t *testing.T) {
	var buf bytes.Buffer
	PrintStep(&buf, 1, datamap.OpConsent, datamap.Result{Message: "done"}, nil)
	PrintStep(&buf, 2, datamap.OpDSAR, datamap.Result{}, &datamap.ValidationError{
		Operation: datamap.OpDSAR,
		Fields:    []datamap.FieldError{{Field: "requestType", Message: "requestType is required"}},
	})
	PrintStep(&buf, 3, datamap.OpScanCookies, datamap.Result{}, errors.New("scanner down"))

	out := buf.String()
	for _, want := range []string{"ok  done", "rejected", "- requestType is required", "failed  scanner down"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
