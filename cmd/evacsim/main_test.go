package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fastScenario = `
scenario:
  en_route_count: 3
  safe_count: 2
  seed: 5
  speeds:
    distinguished: 0.1
    base: 0.05
    jitter: 0.01
logging:
  level: error
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(fastScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Fatalf("expected version %q in %q", version, out)
	}
}

func TestRunCommandJSON(t *testing.T) {
	out, err := runCLI(t, "run", "--config", writeScenario(t), "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if !summary.Complete || summary.Safe != 5 || summary.EnRoute != 0 {
		t.Fatalf("expected completed run, got %+v", summary)
	}
	if summary.Seed != 5 {
		t.Fatalf("expected seed 5, got %d", summary.Seed)
	}
	if summary.DistinguishedArrival != 10 {
		t.Fatalf("expected distinguished arrival at tick 10, got %d", summary.DistinguishedArrival)
	}
}

func TestRunCommandReportsProgress(t *testing.T) {
	out, err := runCLI(t, "run", "--config", writeScenario(t), "--report-every", "5")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "tick=5 ") {
		t.Fatalf("expected a progress line at tick 5, got:\n%s", out)
	}
	if !strings.Contains(out, "complete=true") {
		t.Fatalf("expected completion summary, got:\n%s", out)
	}
}

func TestRunCommandStopsAtMaxTicks(t *testing.T) {
	out, err := runCLI(t, "run", "--config", writeScenario(t), "--max-ticks", "3", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Ticks != 3 || summary.Complete {
		t.Fatalf("expected an unfinished run after 3 ticks, got %+v", summary)
	}
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scenario:\n  en_route_count: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runCLI(t, "run", "--config", path); err == nil {
		t.Fatal("expected invalid config to fail")
	}
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	out, err := runCLI(t, "config", "--seed", "9")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "seed: 9") || !strings.Contains(out, "en_route_count: 57") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}
