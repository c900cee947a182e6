package connspec

import (
	"strings"
	"testing"

	"github.com/agentfirst-data/afpsql/internal/config"
)

func clearConnEnv(t *testing.T) {
	for _, k := range []string{
		"AFPSQL_DSN_SECRET", "AFPSQL_CONNINFO_SECRET",
		"AFPSQL_HOST", "AFPSQL_PORT", "AFPSQL_USER", "AFPSQL_DBNAME", "AFPSQL_PASSWORD_SECRET",
		"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSERVICE", "PGPASSFILE",
	} {
		t.Setenv(k, "")
	}
}

func TestResolveDSNSecretWinsOutright(t *testing.T) {
	clearConnEnv(t)
	dsn := "postgres://user@host/db"
	spec := config.SessionSpec{DSNSecret: &dsn, Host: strPtrVal("ignored")}

	got, err := Resolve(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dsn {
		t.Errorf("got %q, want %q", got, dsn)
	}
}

func TestResolveDiscreteUsesBuiltinDefaults(t *testing.T) {
	clearConnEnv(t)
	got, err := Resolve(config.SessionSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"host=127.0.0.1", "port=5432", "user=postgres", "dbname=postgres"} {
		if !strings.Contains(got, want) {
			t.Errorf("connection string %q missing %q", got, want)
		}
	}
}

func TestResolveDiscreteExplicitFieldsWinOverEnv(t *testing.T) {
	clearConnEnv(t)
	t.Setenv("PGHOST", "env-host")

	host := "explicit-host"
	got, err := Resolve(config.SessionSpec{Host: &host})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "host=explicit-host") {
		t.Errorf("explicit host did not win: %q", got)
	}
}

func TestResolveDiscreteFallsBackToEnv(t *testing.T) {
	clearConnEnv(t)
	t.Setenv("PGDATABASE", "fromenv")

	got, err := Resolve(config.SessionSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "dbname=fromenv") {
		t.Errorf("PG* env fallback not applied: %q", got)
	}
}

func TestResolveQuotesValuesWithSpaces(t *testing.T) {
	clearConnEnv(t)
	db := "my db"
	got, err := Resolve(config.SessionSpec{DBName: &db})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "dbname='my db'") {
		t.Errorf("expected quoted dbname, got %q", got)
	}
}

func strPtrVal(s string) *string { return &s }
