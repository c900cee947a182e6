package xdg

import (
	"path/filepath"
	"testing"
)

func TestConfigDirUsesXDGConfigHome(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(base, "afpsqld")
	if dir != want {
		t.Errorf("ConfigDir() = %v, want %v", dir, want)
	}
}
