package connspec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupPgpassFindsMatchingEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgpass")
	body := "db.internal:5432:mydb:myuser:s3cret\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PGPASSFILE", path)

	pw, ok := lookupPgpass("db.internal", "5432", "mydb", "myuser")
	if !ok || pw != "s3cret" {
		t.Errorf("lookupPgpass = (%q, %v), want (s3cret, true)", pw, ok)
	}
}

func TestLookupPgpassNoMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgpass")
	if err := os.WriteFile(path, []byte("other-host:5432:mydb:myuser:pw\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PGPASSFILE", path)

	if _, ok := lookupPgpass("db.internal", "5432", "mydb", "myuser"); ok {
		t.Errorf("expected no match for a different host")
	}
}
