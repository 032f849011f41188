package datamap

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingObserver struct {
	ops    []string
	failed []string
}

func (o *recordingObserver) ObserveOperation(op string, err error) {
	if err != nil {
		o.failed = append(o.failed, op)
		return
	}
	o.ops = append(o.ops, op)
}

func newTestIntegrations(t *testing.T, opts ...Option) (*Integrations, *[]string) {
	t.Helper()
	var changes []string
	opts = append([]Option{
		WithVendorScanner(FixedVendorScanner{"Google", "Meta"}),
		WithOnChange(func(ctx context.Context, op string) { changes = append(changes, op) }),
	}, opts...)
	return NewIntegrations(NewStore(), opts...), &changes
}

func requireValidationError(t *testing.T, err error, wantFields ...string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	got := make(map[string]bool)
	for _, f := range ve.Fields {
		got[f.Field] = true
	}
	for _, want := range wantFields {
		if !got[want] {
			t.Errorf("expected field error for %q, got %+v", want, ve.Fields)
		}
	}
}

func TestConsent(t *testing.T) {
	in, changes := newTestIntegrations(t)
	ctx := context.Background()

	res, err := in.Consent(ctx, ConsentInput{
		CollectionPoint: " signup-form ",
		Purpose:         "Marketing",
		DataElements:    []string{"Email", "Name"},
	})
	if err != nil {
		t.Fatalf("Consent() error = %v", err)
	}
	if res.Operation != OpConsent {
		t.Errorf("Operation = %q", res.Operation)
	}

	s := in.Store()
	if !s.HasEntity(ProcessingActivities, "Marketing") {
		t.Error("purpose should become a processing activity")
	}
	asset, ok := s.Entity(Assets, "signup-form")
	if !ok {
		t.Fatal("collection point should become a trimmed asset")
	}
	if diff := cmp.Diff([]string{"Email", "Name"}, asset.Elements); diff != "" {
		t.Errorf("asset elements (-want +got):\n%s", diff)
	}
	if !s.HasLink("Marketing", "signup-form") {
		t.Error("expected purpose -> collection point link")
	}
	if diff := cmp.Diff([]string{OpConsent}, *changes); diff != "" {
		t.Errorf("change notifications (-want +got):\n%s", diff)
	}
}

func TestConsentMergesInsteadOfOverwriting(t *testing.T) {
	in, _ := newTestIntegrations(t)
	ctx := context.Background()

	in.Store().UpsertEntity(ProcessingActivities, "Marketing", []string{"SSN"})
	_, err := in.Consent(ctx, ConsentInput{CollectionPoint: "form", Purpose: "Marketing", DataElements: []string{"Email"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = in.Consent(ctx, ConsentInput{CollectionPoint: "form", Purpose: "Marketing", DataElements: []string{"Name"}})
	if err != nil {
		t.Fatal(err)
	}

	pa, _ := in.Store().Entity(ProcessingActivities, "Marketing")
	if diff := cmp.Diff([]string{"SSN"}, pa.Elements); diff != "" {
		t.Errorf("purpose elements should survive consent (-want +got):\n%s", diff)
	}
	asset, _ := in.Store().Entity(Assets, "form")
	if diff := cmp.Diff([]string{"Email", "Name"}, asset.Elements); diff != "" {
		t.Errorf("asset elements (-want +got):\n%s", diff)
	}
	if n := len(in.Store().Links()); n != 1 {
		t.Errorf("expected 1 link, got %d", n)
	}
}

func TestConsentValidation(t *testing.T) {
	tests := []struct {
		name       string
		input      ConsentInput
		wantFields []string
	}{
		{
			name:       "everything missing",
			input:      ConsentInput{},
			wantFields: []string{"collectionPoint", "purpose", "dataElements"},
		},
		{
			name:       "blank purpose",
			input:      ConsentInput{CollectionPoint: "form", Purpose: "   ", DataElements: []string{"Email"}},
			wantFields: []string{"purpose"},
		},
		{
			name:       "unknown element",
			input:      ConsentInput{CollectionPoint: "form", Purpose: "Marketing", DataElements: []string{"Shoe Size"}},
			wantFields: []string{"dataElements"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			in, changes := newTestIntegrations(t, WithObserver(obs))

			_, err := in.Consent(context.Background(), tt.input)
			requireValidationError(t, err, tt.wantFields...)

			if !in.Store().IsEmpty() {
				t.Error("store must not change on validation failure")
			}
			if len(*changes) != 0 {
				t.Errorf("no refresh expected, got %v", *changes)
			}
			if diff := cmp.Diff([]string{OpConsent}, obs.failed); diff != "" {
				t.Errorf("observer failures (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanCookies(t *testing.T) {
	in, _ := newTestIntegrations(t)

	res, err := in.ScanCookies(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("ScanCookies() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Google", "Meta"}, res.VendorsFound); diff != "" {
		t.Errorf("vendors found (-want +got):\n%s", diff)
	}

	s := in.Store()
	if !s.HasEntity(Assets, "example.com") {
		t.Error("domain should become an asset")
	}
	for _, v := range []string{"Google", "Meta"} {
		if !s.HasVendor(v) {
			t.Errorf("vendor %s missing", v)
		}
		if !s.HasLink("example.com", v) {
			t.Errorf("link example.com -> %s missing", v)
		}
	}

	// a rescan keeps the existing asset elements
	s.UpsertEntity(Assets, "example.com", []string{"Email"})
	if _, err := in.ScanCookies(context.Background(), "example.com"); err != nil {
		t.Fatal(err)
	}
	asset, _ := s.Entity(Assets, "example.com")
	if diff := cmp.Diff([]string{"Email"}, asset.Elements); diff != "" {
		t.Errorf("rescan changed elements (-want +got):\n%s", diff)
	}
	if n := len(s.Links()); n != 2 {
		t.Errorf("rescan should not duplicate links, got %d", n)
	}
}

func TestScanCookiesRequiresDomain(t *testing.T) {
	in, _ := newTestIntegrations(t)
	_, err := in.ScanCookies(context.Background(), "")
	requireValidationError(t, err, "domain")
}

type failingScanner struct{}

func (failingScanner) ScanVendors(ctx context.Context, domain string, known []string) ([]string, error) {
	return nil, errors.New("scanner offline")
}

func TestScanCookiesScannerFailure(t *testing.T) {
	in, changes := newTestIntegrations(t, WithVendorScanner(failingScanner{}))

	_, err := in.ScanCookies(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsValidationError(err) {
		t.Error("scanner failure is not a validation error")
	}
	if !in.Store().IsEmpty() || len(*changes) != 0 {
		t.Error("failed scan must not touch the store")
	}
}

func TestSubmitDSAR(t *testing.T) {
	in, _ := newTestIntegrations(t)
	ctx := context.Background()

	if _, err := in.SubmitDSAR(ctx, DSARInput{RequestType: "Access", DataElements: []string{"Email"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := in.SubmitDSAR(ctx, DSARInput{RequestType: "Access", DataElements: []string{"SSN"}}); err != nil {
		t.Fatal(err)
	}

	pa, ok := in.Store().Entity(ProcessingActivities, "Access")
	if !ok {
		t.Fatal("request type should become a processing activity")
	}
	if diff := cmp.Diff([]string{"Email", "SSN"}, pa.Elements); diff != "" {
		t.Errorf("elements (-want +got):\n%s", diff)
	}
}

func TestSubmitDSARUsesDSARVocabulary(t *testing.T) {
	in, _ := newTestIntegrations(t)
	// Name is a data element but not offered on the DSAR form
	_, err := in.SubmitDSAR(context.Background(), DSARInput{RequestType: "Access", DataElements: []string{"Name"}})
	requireValidationError(t, err, "dataElements")
}

func TestDiscoverData(t *testing.T) {
	in, _ := newTestIntegrations(t)
	ctx := context.Background()

	if _, err := in.DiscoverData(ctx, DiscoveryInput{DataSource: "warehouse", PIIs: []string{"Name", "Email"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := in.DiscoverData(ctx, DiscoveryInput{DataSource: "warehouse", PIIs: []string{"Email", "Address"}}); err != nil {
		t.Fatal(err)
	}

	asset, _ := in.Store().Entity(Assets, "warehouse")
	if diff := cmp.Diff([]string{"Name", "Email", "Address"}, asset.Elements); diff != "" {
		t.Errorf("elements (-want +got):\n%s", diff)
	}

	_, err := in.DiscoverData(ctx, DiscoveryInput{DataSource: "warehouse"})
	requireValidationError(t, err, "piis")
}

func TestEngageVendors(t *testing.T) {
	in, _ := newTestIntegrations(t)

	_, err := in.EngageVendors(context.Background(), EngagementInput{
		Name:    "Payroll Outsourcing",
		Vendors: []string{"Salesforce", "Acme Payroll"},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := in.Store()
	if !s.HasEntity(ProcessingActivities, "Payroll Outsourcing") {
		t.Error("engagement should be a processing activity")
	}
	if diff := cmp.Diff([]string{"Salesforce", "Acme Payroll"}, s.Vendors()); diff != "" {
		t.Errorf("vendors (-want +got):\n%s", diff)
	}
	if !s.HasLink("Payroll Outsourcing", "Acme Payroll") {
		t.Error("missing engagement -> vendor link")
	}

	opts := in.Options()
	if diff := cmp.Diff([]string{"Acme Payroll", "Google", "Meta", "Microsoft", "Salesforce"}, opts.Vendors); diff != "" {
		t.Errorf("vendor options (-want +got):\n%s", diff)
	}
}

func TestEngageVendorsValidation(t *testing.T) {
	in, _ := newTestIntegrations(t)
	_, err := in.EngageVendors(context.Background(), EngagementInput{Name: "x", Vendors: []string{}})
	requireValidationError(t, err, "vendors")

	_, err = in.EngageVendors(context.Background(), EngagementInput{Name: "x", Vendors: []string{"Google", "  "}})
	if err == nil {
		t.Error("expected blank vendor to be rejected")
	}
	if !in.Store().IsEmpty() {
		t.Errorf("rejected engagement changed the store: %+v", in.Store().Snapshot())
	}
}

func TestEngageVendorsTrimsNames(t *testing.T) {
	in, _ := newTestIntegrations(t)

	_, err := in.EngageVendors(context.Background(), EngagementInput{
		Name:    "Analytics",
		Vendors: []string{" Google ", "Google", "Meta\t"},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := in.Store()
	if diff := cmp.Diff([]string{"Google", "Meta"}, s.Vendors()); diff != "" {
		t.Errorf("vendors (-want +got):\n%s", diff)
	}
	want := []Link{{Source: "Analytics", Target: "Google"}, {Source: "Analytics", Target: "Meta"}}
	if diff := cmp.Diff(want, s.Links()); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
}

func TestCreateModel(t *testing.T) {
	in, _ := newTestIntegrations(t)

	_, err := in.CreateModel(context.Background(), ModelInput{
		Name:        "RiskModel",
		Description: "scores loan applications",
		Purpose:     "Loan Approval",
	})
	if err != nil {
		t.Fatal(err)
	}

	s := in.Store()
	if !s.HasLink("Loan Approval", "RiskModel") {
		t.Error("missing purpose -> model link")
	}
	if !s.HasEntity(ProcessingActivities, "Loan Approval") {
		t.Error("purpose should exist as a processing activity")
	}
	if _, ok := s.Model("RiskModel"); !ok {
		t.Error("model not stored")
	}
}

func TestCreateModelRejectsPromptPurpose(t *testing.T) {
	for _, purpose := range []string{"", PurposePrompt, PurposeAddNew} {
		t.Run(purpose, func(t *testing.T) {
			in, _ := newTestIntegrations(t)
			_, err := in.CreateModel(context.Background(), ModelInput{Name: "m", Description: "d", Purpose: purpose})
			requireValidationError(t, err, "purpose")
			if !in.Store().IsEmpty() {
				t.Error("store must stay empty")
			}
		})
	}
}

func TestCreateProcessingActivity(t *testing.T) {
	in, _ := newTestIntegrations(t)
	ctx := context.Background()

	in.Store().UpsertEntity(ProcessingActivities, "Fraud Detection", []string{"SSN"})
	if _, err := in.CreateProcessingActivity(ctx, "Fraud Detection"); err != nil {
		t.Fatal(err)
	}
	pa, _ := in.Store().Entity(ProcessingActivities, "Fraud Detection")
	if len(pa.Elements) != 1 {
		t.Errorf("existing elements should be kept, got %v", pa.Elements)
	}

	_, err := in.CreateProcessingActivity(ctx, " ")
	requireValidationError(t, err, "name")
}

func TestOptionsMergeSessionActivities(t *testing.T) {
	in, _ := newTestIntegrations(t, WithVocabulary(func() Vocabulary {
		v := DefaultVocabulary()
		v.ProcessingActivities = []string{"Credit Check Process"}
		return v
	}))
	in.Store().UpsertEntity(ProcessingActivities, "Access", nil)
	in.Store().UpsertEntity(ProcessingActivities, "Credit Check Process", nil)

	got := in.Options().ProcessingActivities
	if diff := cmp.Diff([]string{"Access", "Credit Check Process"}, got); diff != "" {
		t.Errorf("activities (-want +got):\n%s", diff)
	}
}

func TestRandomVendorScanner(t *testing.T) {
	known := DefaultVocabulary().Vendors
	scanner := NewRandomVendorScanner(42)

	for i := 0; i < 50; i++ {
		got, err := scanner.ScanVendors(context.Background(), "example.com", known)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) < 1 || len(got) > len(known) {
			t.Fatalf("sample size %d out of range", len(got))
		}
		seen := make(map[string]bool)
		for _, v := range got {
			if seen[v] {
				t.Fatalf("duplicate vendor %s in %v", v, got)
			}
			seen[v] = true
		}
	}

	if got, _ := scanner.ScanVendors(context.Background(), "example.com", nil); len(got) != 0 {
		t.Errorf("expected no vendors from empty vocabulary, got %v", got)
	}
}

func TestRandomVendorScannerDeterministicSeed(t *testing.T) {
	known := DefaultVocabulary().Vendors
	a, _ := NewRandomVendorScanner(7).ScanVendors(context.Background(), "x", known)
	b, _ := NewRandomVendorScanner(7).ScanVendors(context.Background(), "x", known)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed should give the same sample (-a +b):\n%s", diff)
	}
}
