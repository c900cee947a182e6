package cli

import "github.com/spf13/cobra"

// flags holds every canonical AFD flag spec §6 defines (including
// `--mode`), plus the process-level `--config` flag this entrypoint adds. Mirrors
// the package-level flag-variable style of cmd/connect.go in the teacher.
type flags struct {
	mode   string
	output string
	config string

	sql     string
	sqlFile string
	param   []string

	streamRows         bool
	batchRows          int
	batchBytes         int
	inlineMaxRows      int
	inlineMaxBytes     int
	statementTimeoutMS int
	lockTimeoutMS      int

	dsnSecret      string
	conninfoSecret string
	host           string
	port           int
	user           string
	dbname         string
	passwordSecret string
	session        string

	log string
}

var f flags

func registerFlags(c *cobra.Command) {
	fs := c.Flags()

	fs.StringVar(&f.mode, "mode", "pipe", "operating mode: pipe, cli (mcp and psql are rejected)")
	fs.StringVar(&f.output, "output", "json", "output format (only json is implemented)")
	fs.StringVar(&f.config, "config", "", "path to a bootstrap configuration file")

	fs.StringVar(&f.sql, "sql", "", "SQL text for single-shot CLI mode")
	fs.StringVar(&f.sqlFile, "sql-file", "", "path to a file containing SQL text for single-shot CLI mode")
	fs.StringArrayVar(&f.param, "param", nil, "positional parameter as N=VALUE, repeatable")

	fs.BoolVar(&f.streamRows, "stream-rows", false, "stream rows instead of buffering one inline result")
	fs.IntVar(&f.batchRows, "batch-rows", 0, "row count per streamed batch (0 = configuration default)")
	fs.IntVar(&f.batchBytes, "batch-bytes", 0, "byte threshold per streamed batch (0 = configuration default)")
	fs.IntVar(&f.inlineMaxRows, "inline-max-rows", 0, "inline row cap (configuration default when not given)")
	fs.IntVar(&f.inlineMaxBytes, "inline-max-bytes", 0, "inline byte cap (configuration default when not given)")
	fs.IntVar(&f.statementTimeoutMS, "statement-timeout-ms", 0, "statement_timeout in ms (configuration default when not given; 0 leaves the server's setting)")
	fs.IntVar(&f.lockTimeoutMS, "lock-timeout-ms", 0, "lock_timeout in ms (configuration default when not given; 0 leaves the server's setting)")

	fs.StringVar(&f.dsnSecret, "dsn-secret", "", "connection DSN, or a keyring:<account> reference")
	fs.StringVar(&f.conninfoSecret, "conninfo-secret", "", "connection conninfo string, or a keyring:<account> reference")
	fs.StringVar(&f.host, "host", "", "database host")
	fs.IntVar(&f.port, "port", 0, "database port")
	fs.StringVar(&f.user, "user", "", "database user")
	fs.StringVar(&f.dbname, "dbname", "", "database name")
	fs.StringVar(&f.passwordSecret, "password-secret", "", "database password, or a keyring:<account> reference")
	fs.StringVar(&f.session, "session", "", "named session (defaults to the configuration's default_session)")

	fs.StringVar(&f.log, "log", "", "comma-separated log categories to enable")
}
