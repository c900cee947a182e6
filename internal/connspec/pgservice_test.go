package connspec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServiceDefaultsReadsNamedService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pg_service.conf")
	body := "[analytics]\nhost=svc-host\nport=5433\nuser=svc-user\ndbname=svc-db\npassword=svc-pass\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PGSERVICEFILE", path)

	host, port, user, dbname, password, ok := serviceDefaults("analytics")
	if !ok {
		t.Fatalf("expected service lookup to succeed")
	}
	if host != "svc-host" || port != "5433" || user != "svc-user" || dbname != "svc-db" || password != "svc-pass" {
		t.Errorf("unexpected service fields: host=%q port=%q user=%q dbname=%q password=%q", host, port, user, dbname, password)
	}
}

func TestServiceDefaultsMissingServiceFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pg_service.conf")
	if err := os.WriteFile(path, []byte("[other]\nhost=x\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PGSERVICEFILE", path)

	if _, _, _, _, _, ok := serviceDefaults("analytics"); ok {
		t.Errorf("expected lookup of an absent service to fail")
	}
}
