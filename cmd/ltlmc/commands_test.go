package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return path
}

func TestCheckCommand(t *testing.T) {
	graphPath := writeFile(t, "graph.yaml", `
initial: [A]
accepting: [B]
edges:
  A: [B]
  B: [B]
`)
	configPath := writeFile(t, "config.yaml", `
workers: 2
table:
  initial_size: 64
  regions: sqrt
`)
	parents := filepath.Join(t.TempDir(), "parents.nwk")

	out := bytes.Buffer{}
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"check", "--config", configPath, "--log-level", "error", "--graph", graphPath, "--export-parents", parents})
	err := rootCmd.Execute()
	if !errors.Is(err, errViolated) {
		t.Fatalf("Expected errViolated. Got: %v", err)
	}
	if !strings.Contains(out.String(), "Accepting cycle found") {
		t.Fatalf("Expected the counterexample in the output. Got: %v", out.String())
	}
	exported, err := os.ReadFile(parents)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(exported), "\"A\"") {
		t.Fatalf("Expected the parent forest to contain A. Got: %v", string(exported))
	}
}

func TestPick(t *testing.T) {
	if pick("", "file") != "file" || pick("flag", "file") != "flag" {
		t.Fatalf("Flags should override the configuration file")
	}
	if pickInt(0, 3) != 3 || pickInt(2, 3) != 2 {
		t.Fatalf("Flags should override the configuration file")
	}
}
