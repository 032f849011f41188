package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
)

const scenarioDoc = `
name: test
scanned_vendors: [Google]
steps:
  - consent: {collection_point: example.com, purpose: Marketing, data_elements: [Email]}
  - cookies: {domain: example.com}
  - dsar: {request_type: Access Request, data_elements: [Nope]}
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayText(t *testing.T) {
	path := writeScenario(t)

	out, err := runCLI(t, "replay", path)
	if err != nil {
		t.Fatalf("replay error = %v\n%s", err, out)
	}
	for _, want := range []string{"2 applied, 1 rejected", "example.com", "Google", "Marketing"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestReplayJSON(t *testing.T) {
	path := writeScenario(t)

	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"replay", "--format", "json", path})
	if err := root.ExecuteContext(t.Context()); err != nil {
		t.Fatal(err)
	}

	var snap datamap.Snapshot
	if err := json.Unmarshal(stdout.Bytes(), &snap); err != nil {
		t.Fatalf("stdout is not a snapshot: %v\n%s", err, stdout.String())
	}
	if len(snap.Vendors) != 1 || snap.Vendors[0] != "Google" {
		t.Errorf("vendors = %v", snap.Vendors)
	}
}

func TestReplayDOT(t *testing.T) {
	path := writeScenario(t)

	out, err := runCLI(t, "replay", "-f", "dot", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "digraph") {
		t.Errorf("expected DOT output:\n%s", out)
	}
}

func TestReplayErrors(t *testing.T) {
	path := writeScenario(t)

	if _, err := runCLI(t, "replay", "-f", "xml", path); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := runCLI(t, "replay", "missing.yaml"); err == nil {
		t.Error("expected error for missing scenario")
	}
	if _, err := runCLI(t, "replay"); err == nil {
		t.Error("expected error without arguments")
	}
}

func TestClassifyNeedsKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DM_CONSENT_LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := runCLI(t, "classify", "john@example.com"); err == nil {
		t.Error("expected error without an API key")
	}
}
