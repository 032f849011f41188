package datamap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if !s.IsEmpty() {
		t.Fatal("NewStore() should be empty")
	}
	if len(s.Entities(Assets)) != 0 {
		t.Errorf("expected no assets, got %d", len(s.Entities(Assets)))
	}
}

func TestUpsertEntityMergesElements(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(Assets, "example.com", []string{"Email"})
	s.UpsertEntity(Assets, "example.com", []string{"SSN"})

	got, ok := s.Entity(Assets, "example.com")
	if !ok {
		t.Fatal("example.com not found")
	}
	want := []string{"Email", "SSN"}
	if diff := cmp.Diff(want, got.Elements); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertEntityNeverShrinks(t *testing.T) {
	tests := []struct {
		name        string
		submissions [][]string
		want        []string
	}{
		{
			name:        "single submission",
			submissions: [][]string{{"Name", "Email"}},
			want:        []string{"Name", "Email"},
		},
		{
			name:        "empty submission keeps existing",
			submissions: [][]string{{"Name"}, nil, {}},
			want:        []string{"Name"},
		},
		{
			name:        "overlapping submissions",
			submissions: [][]string{{"Email", "SSN"}, {"SSN", "Address"}, {"Email"}},
			want:        []string{"Email", "SSN", "Address"},
		},
		{
			name:        "duplicates inside one submission",
			submissions: [][]string{{"Email", "Email", "Name"}},
			want:        []string{"Email", "Name"},
		},
		{
			name:        "only empty",
			submissions: [][]string{nil},
			want:        []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, sub := range tt.submissions {
				s.UpsertEntity(ProcessingActivities, "Marketing", sub)
			}
			got, ok := s.Entity(ProcessingActivities, "Marketing")
			if !ok {
				t.Fatal("entity missing")
			}
			if diff := cmp.Diff(tt.want, got.Elements); diff != "" {
				t.Errorf("elements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpsertEntityKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"b.com", "a.com", "c.com", "a.com"} {
		s.UpsertEntity(Assets, name, nil)
	}

	var names []string
	for _, e := range s.Entities(Assets) {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"b.com", "a.com", "c.com"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectionsAreIndependent(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(Assets, "Billing", []string{"Email"})
	s.UpsertEntity(ProcessingActivities, "Billing", []string{"SSN"})

	asset, _ := s.Entity(Assets, "Billing")
	activity, _ := s.Entity(ProcessingActivities, "Billing")
	if diff := cmp.Diff([]string{"Email"}, asset.Elements); diff != "" {
		t.Errorf("asset elements (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"SSN"}, activity.Elements); diff != "" {
		t.Errorf("activity elements (-want +got):\n%s", diff)
	}
}

func TestUnknownCollectionIgnored(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(Collection("legal_entities"), "Acme", []string{"Name"})
	if !s.IsEmpty() {
		t.Error("upsert into unknown collection should not change the store")
	}
	if s.HasEntity(Collection("legal_entities"), "Acme") {
		t.Error("HasEntity should be false for unknown collections")
	}
}

func TestEntityReturnsCopy(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(Assets, "crm", []string{"Name"})

	e, _ := s.Entity(Assets, "crm")
	e.Elements[0] = "mutated"

	again, _ := s.Entity(Assets, "crm")
	if again.Elements[0] != "Name" {
		t.Errorf("store was mutated through a returned slice: %v", again.Elements)
	}
}

func TestAddLinkDeduplicates(t *testing.T) {
	s := NewStore()
	if !s.AddLink("Marketing", "web-form") {
		t.Error("first AddLink should report a new link")
	}
	if s.AddLink("Marketing", "web-form") {
		t.Error("second AddLink should report no new link")
	}
	if !s.AddLink("web-form", "Marketing") {
		t.Error("reverse pair is a different link")
	}

	want := []Link{
		{Source: "Marketing", Target: "web-form"},
		{Source: "web-form", Target: "Marketing"},
	}
	if diff := cmp.Diff(want, s.Links()); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestAddLinkSelfLoop(t *testing.T) {
	s := NewStore()
	if !s.AddLink("loop", "loop") {
		t.Fatal("self link should be recorded")
	}
	if s.AddLink("loop", "loop") {
		t.Error("self link should be deduplicated")
	}
	if got := s.Downstream("loop"); len(got) != 0 {
		t.Errorf("self link should not make a node its own descendant, got %v", got)
	}
}

func TestAddVendor(t *testing.T) {
	s := NewStore()
	if !s.AddVendor("Google") {
		t.Error("expected new vendor")
	}
	if s.AddVendor("Google") {
		t.Error("expected duplicate vendor to be ignored")
	}
	s.AddVendor("Meta")

	if diff := cmp.Diff([]string{"Google", "Meta"}, s.Vendors()); diff != "" {
		t.Errorf("vendors mismatch (-want +got):\n%s", diff)
	}
	if !s.HasVendor("Meta") {
		t.Error("HasVendor(Meta) = false")
	}
}

func TestAddModelLinksPurpose(t *testing.T) {
	s := NewStore()
	s.AddModel("RiskModel", "desc", "Loan Approval")

	if !s.HasLink("Loan Approval", "RiskModel") {
		t.Error("expected link Loan Approval -> RiskModel")
	}
	m, ok := s.Model("RiskModel")
	if !ok {
		t.Fatal("model not stored")
	}
	if m.Description != "desc" || m.Purpose != "Loan Approval" {
		t.Errorf("unexpected model %+v", m)
	}
}

func TestAddModelOverwrites(t *testing.T) {
	s := NewStore()
	s.AddModel("RiskModel", "v1", "Loan Approval")
	s.AddModel("RiskModel", "v2", "Credit Check")

	models := s.Models()
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if models[0].Description != "v2" || models[0].Purpose != "Credit Check" {
		t.Errorf("model not overwritten: %+v", models[0])
	}
	// links are never removed
	if !s.HasLink("Loan Approval", "RiskModel") || !s.HasLink("Credit Check", "RiskModel") {
		t.Errorf("expected both purpose links, got %v", s.Links())
	}
}

func TestDownstream(t *testing.T) {
	s := NewStore()
	s.AddLink("Marketing", "web-form")
	s.AddLink("web-form", "Google")
	s.AddLink("Marketing", "Meta")
	s.AddLink("Unrelated", "Salesforce")

	got := s.Downstream("Marketing")
	want := []string{"web-form", "Google", "Meta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("downstream mismatch (-want +got):\n%s", diff)
	}

	if got := s.Downstream("missing"); got != nil {
		t.Errorf("expected nil for unknown name, got %v", got)
	}
	if got := s.Downstream("Google"); len(got) != 0 {
		t.Errorf("expected leaf to have no downstream, got %v", got)
	}
}

func TestCycles(t *testing.T) {
	s := NewStore()
	s.AddLink("loop", "loop")
	s.AddLink("Marketing", "web-form")
	s.AddLink("web-form", "Google")
	s.AddLink("Google", "Marketing")
	s.AddLink("Payroll", "Acme")
	s.AddLink("Acme", "Payroll")
	s.AddLink("Unrelated", "Salesforce")

	want := [][]string{
		{"Marketing", "web-form", "Google"},
		{"Payroll", "Acme"},
	}
	if diff := cmp.Diff(want, s.Cycles()); diff != "" {
		t.Errorf("cycles mismatch (-want +got):\n%s", diff)
	}

	if got := NewStore().Cycles(); len(got) != 0 {
		t.Errorf("empty store has cycles %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewStore()
	s.UpsertEntity(ProcessingActivities, "Marketing", nil)
	s.UpsertEntity(Assets, "web-form", []string{"Email"})
	s.AddLink("Marketing", "web-form")
	s.AddVendor("Google")
	s.AddModel("RiskModel", "desc", "Marketing")

	snap := s.Snapshot()
	want := Snapshot{
		ProcessingActivities: []Entity{{Name: "Marketing", Elements: []string{}}},
		Assets:               []Entity{{Name: "web-form", Elements: []string{"Email"}}},
		Vendors:              []string{"Google"},
		Models:               []Model{{Name: "RiskModel", Description: "desc", Purpose: "Marketing"}},
		Links: []Link{
			{Source: "Marketing", Target: "web-form"},
			{Source: "Marketing", Target: "RiskModel"},
		},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
