package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBootstrapMissingFileYieldsDefault(t *testing.T) {
	rt, err := LoadBootstrap(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.DefaultSession != Default().DefaultSession {
		t.Errorf("expected Default(), got %+v", rt)
	}
}

func TestLoadBootstrapReadsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"default_session":"analytics","inline_max_rows":50,"sessions":{"analytics":{"host":"db.internal"}}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rt, err := LoadBootstrap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.DefaultSession != "analytics" {
		t.Errorf("DefaultSession = %v, want analytics", rt.DefaultSession)
	}
	if rt.InlineMaxRows != 50 {
		t.Errorf("InlineMaxRows = %d, want 50", rt.InlineMaxRows)
	}
	spec, ok := rt.Sessions["analytics"]
	if !ok || spec.Host == nil || *spec.Host != "db.internal" {
		t.Errorf("analytics session not loaded: %+v", rt.Sessions)
	}
}

func TestLoadBootstrapMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadBootstrap(path); err == nil {
		t.Errorf("expected an error for malformed bootstrap file")
	}
}
