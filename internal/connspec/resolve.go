// Package connspec resolves a configuration Connection Spec into a libpq
// connection string, following the precedence spec §3 defines: an explicit
// dsn_secret wins outright, then an explicit conninfo_secret, then explicit
// discrete fields. Only a spec with none of these falls back to the
// AFPSQL_DSN_SECRET and AFPSQL_CONNINFO_SECRET environment variables. Each
// discrete field falls back through the canonical AFPSQL_* environment
// variable, the standard PG* variable (host, port, user and dbname only),
// ~/.pg_service.conf and a built-in default (host, port, user and dbname
// only); a password still missing after that is looked up in ~/.pgpass.
//
// This mirrors conn.rs's resolve_conn_string from the original
// implementation, generalized to also consult pgservicefile/pgpassfile (the
// same two libraries pgx itself carries as transitive dependencies but
// never exposes directly), and to resolve "_secret" fields that are
// keyring references rather than literal values (internal/secretstore).
package connspec

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/secretstore"
)

// Resolve builds a libpq connection string for spec. pgx's own ParseConfig
// accepts both URL and keyword/value forms, so the dsn_secret and
// conninfo_secret cases are returned as-is once their secret reference (if
// any) is resolved.
func Resolve(spec config.SessionSpec) (string, error) {
	if spec.DSNSecret != nil {
		return secretstore.Resolve(*spec.DSNSecret)
	}
	if spec.ConninfoSecret != nil {
		return secretstore.Resolve(*spec.ConninfoSecret)
	}

	if spec.Host == nil && spec.Port == nil && spec.User == nil && spec.DBName == nil && spec.PasswordSecret == nil {
		if v, ok := envString("AFPSQL_DSN_SECRET", ""); ok {
			return secretstore.Resolve(v)
		}
		if v, ok := envString("AFPSQL_CONNINFO_SECRET", ""); ok {
			return secretstore.Resolve(v)
		}
	}

	return resolveDiscrete(spec)
}

func resolveDiscrete(spec config.SessionSpec) (string, error) {
	host := firstNonEmpty(strPtr(spec.Host), envLookup("AFPSQL_HOST", "PGHOST"))
	port := firstNonEmpty(intPtr(spec.Port), envLookup("AFPSQL_PORT", "PGPORT"))
	user := firstNonEmpty(strPtr(spec.User), envLookup("AFPSQL_USER", "PGUSER"))
	dbname := firstNonEmpty(strPtr(spec.DBName), envLookup("AFPSQL_DBNAME", "PGDATABASE"))

	var password string
	var havePassword bool
	if spec.PasswordSecret != nil {
		resolved, err := secretstore.Resolve(*spec.PasswordSecret)
		if err != nil {
			return "", err
		}
		password, havePassword = resolved, true
	} else if v, ok := envString("AFPSQL_PASSWORD_SECRET", ""); ok {
		resolved, err := secretstore.Resolve(v)
		if err != nil {
			return "", err
		}
		password, havePassword = resolved, true
	}

	if serviceName := os.Getenv("PGSERVICE"); serviceName != "" {
		svcHost, svcPort, svcUser, svcDB, svcPass, ok := serviceDefaults(serviceName)
		if ok {
			if host == "" {
				host = svcHost
			}
			if port == "" {
				port = svcPort
			}
			if user == "" {
				user = svcUser
			}
			if dbname == "" {
				dbname = svcDB
			}
			if !havePassword && svcPass != "" {
				password, havePassword = svcPass, true
			}
		}
	}

	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "5432"
	}
	if user == "" {
		user = "postgres"
	}
	if dbname == "" {
		dbname = "postgres"
	}

	if !havePassword {
		if pw, ok := lookupPgpass(host, port, dbname, user); ok {
			password, havePassword = pw, true
		}
	}

	var b strings.Builder
	writeKV(&b, "host", host)
	writeKV(&b, "port", port)
	writeKV(&b, "user", user)
	writeKV(&b, "dbname", dbname)
	if havePassword {
		writeKV(&b, "password", password)
	}
	return strings.TrimSpace(b.String()), nil
}

func writeKV(b *strings.Builder, key, value string) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	fmt.Fprintf(b, "%s=%s", key, quoteLibpq(value))
}

// quoteLibpq quotes a libpq keyword/value pair value when it contains
// characters that would otherwise terminate the token early.
func quoteLibpq(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func envLookup(canonical, standard string) string {
	v, _ := envString(canonical, standard)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
