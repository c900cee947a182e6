package connspec

import (
	"os"
	"path/filepath"

	"github.com/jackc/pgpassfile"
)

// lookupPgpass fills a password missing from every other source by
// consulting ~/.pgpass, the same fallback libpq and psql use. This
// supplements spec §3's resolution precedence without changing it: it only
// ever fills a password that all other sources left empty.
func lookupPgpass(host, port, dbname, user string) (string, bool) {
	path := os.Getenv("PGPASSFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		path = filepath.Join(home, ".pgpass")
	}

	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return "", false
	}
	password := pf.FindPassword(host, port, dbname, user)
	return password, password != ""
}
