package connspec

import "os"

// envString returns the first of the canonical AFPSQL_* variable and the
// standard libpq PG* variable that is set, in that order (spec §3, §6).
func envString(canonical, standard string) (string, bool) {
	if v, ok := os.LookupEnv(canonical); ok && v != "" {
		return v, true
	}
	if standard == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(standard); ok && v != "" {
		return v, true
	}
	return "", false
}
