package main

import (
	"bytes"
	"context"
	"testing"
)

// executeCmd runs the root command with args and returns stdout and stderr.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "newsledger" {
			t.Errorf("expected use 'newsledger', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			shorthand string
			def       string
		}{
			{name: "verbose", shorthand: "v", def: "false"},
			{name: "log-json", def: "false"},
			{name: "config", shorthand: "c", def: ""},
		}
		for _, tt := range tests {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand || flag.DefValue != tt.def {
				t.Errorf("%s: expected -%s default %q, got -%s default %q",
					tt.name, tt.shorthand, tt.def, flag.Shorthand, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"run": false, "ledger": false, "classify": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors to be true")
		}
	})
}

// TestLoadSourcesFile tests explicit and missing sources files.
func TestLoadSourcesFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path not found", func(t *testing.T) {
		t.Parallel()
		if _, err := loadSourcesFile(t.TempDir() + "/missing.yaml"); err == nil {
			t.Error("expected error for a missing explicit path")
		}
	})

	t.Run("explicit path loaded", func(t *testing.T) {
		t.Parallel()
		path := writeSourcesFile(t, "sources:\n  - id: a\n    feed: https://a.example/feed\n")
		cf, err := loadSourcesFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cf.Sources) != 1 || cf.Sources[0].ID != "a" {
			t.Errorf("unexpected sources %+v", cf.Sources)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		t.Parallel()
		path := writeSourcesFile(t, "sources:\n  - id: a\n")
		if _, err := loadSourcesFile(path); err == nil {
			t.Error("expected error for a source without entry point")
		}
	})
}
