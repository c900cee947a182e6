package connspec

import (
	"os"
	"path/filepath"

	"github.com/jackc/pgservicefile"
)

// serviceDefaults resolves a named entry from ~/.pg_service.conf (or
// PGSERVICEFILE), the same service-name shorthand libpq supports. The
// caller only consults this for fields a Connection Spec and the
// environment both left unset (spec §3's precedence is unaffected).
func serviceDefaults(serviceName string) (host, port, user, dbname, password string, ok bool) {
	if serviceName == "" {
		return
	}
	path := os.Getenv("PGSERVICEFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".pg_service.conf")
	}

	sf, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return
	}
	svc, err := sf.GetService(serviceName)
	if err != nil {
		return
	}
	settings := svc.Settings
	host, port, user, dbname, password = settings["host"], settings["port"], settings["user"], settings["dbname"], settings["password"]
	ok = true
	return
}
