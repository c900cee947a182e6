package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentfirst-data/afpsql/internal/aerr"
	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/pipeline"
	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/session"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// runSingleShot runs exactly one query built from the canonical flags and
// exits with the status spec §6 defines: 0 on result/result_end, 1 on
// sql_error/error. It never enters the JSONL loop runPipe drives.
func runSingleShot(cmd *cobra.Command, initial config.Runtime) int {
	sql, err := loadSQL()
	if err != nil {
		fmt.Fprintln(os.Stderr, "afpsqld:", err)
		return 2
	}

	params, err := parseParams(f.param)
	if err != nil {
		fmt.Fprintln(os.Stderr, "afpsqld:", err)
		return 2
	}

	sessionName := f.session
	if sessionName == "" {
		sessionName = initial.DefaultSession
	}
	rt := overlaySession(initial, sessionName)
	if f.log != "" {
		rt.Log = strings.Split(f.log, ",")
	}

	opts := protocol.QueryOptions{StreamRows: f.streamRows}
	if f.batchRows > 0 {
		opts.BatchRows = intPtr(f.batchRows)
	}
	if f.batchBytes > 0 {
		opts.BatchBytes = intPtr(f.batchBytes)
	}
	if cmd.Flags().Changed("statement-timeout-ms") {
		opts.StatementTimeoutMS = intPtr(f.statementTimeoutMS)
	}
	if cmd.Flags().Changed("lock-timeout-ms") {
		opts.LockTimeoutMS = intPtr(f.lockTimeoutMS)
	}
	if cmd.Flags().Changed("inline-max-rows") {
		opts.InlineMaxRows = intPtr(f.inlineMaxRows)
	}
	if cmd.Flags().Changed("inline-max-bytes") {
		opts.InlineMaxBytes = intPtr(f.inlineMaxBytes)
	}

	in := protocol.QueryInput{
		ID:      "cli",
		Session: &sessionName,
		SQL:     sql,
		Params:  params,
		Options: opts,
	}

	w := writer.New(os.Stdout)
	sessions := session.New(w)
	defer sessions.Close()

	ctx := context.Background()
	resolvedOpts := config.Resolve(rt, in.Options)

	pool, err := sessions.Acquire(ctx, rt, sessionName)
	if err != nil {
		e, ok := err.(*aerr.E)
		if !ok {
			e = aerr.Wrap(aerr.ConnectFailed, "acquiring session", err)
		}
		_ = w.Emit(protocol.Error{ID: &in.ID, ErrorCode: string(e.Code), Message: e.Message, Retryable: e.Retryable(), Trace: protocol.OnlyDuration(0)})
		return 1
	}

	code := pipeline.New(w).Run(ctx, pool, in, sessionName, resolvedOpts, rt.Log, nil)
	switch code {
	case protocol.CodeResult, protocol.CodeResultEnd:
		return 0
	default:
		return 1
	}
}

// overlaySession merges any CLI-supplied discrete connection flags onto
// rt's entry for name, matching cli.rs's treatment of the per-flag session
// override: an explicit flag wins over whatever the bootstrap configuration
// already has for that session.
func overlaySession(rt config.Runtime, name string) config.Runtime {
	spec := rt.Sessions[name]

	if f.dsnSecret != "" {
		spec.DSNSecret = strPtr(f.dsnSecret)
	}
	if f.conninfoSecret != "" {
		spec.ConninfoSecret = strPtr(f.conninfoSecret)
	}
	if f.host != "" {
		spec.Host = strPtr(f.host)
	}
	if f.port != 0 {
		spec.Port = intPtr(f.port)
	}
	if f.user != "" {
		spec.User = strPtr(f.user)
	}
	if f.dbname != "" {
		spec.DBName = strPtr(f.dbname)
	}
	if f.passwordSecret != "" {
		spec.PasswordSecret = strPtr(f.passwordSecret)
	}

	next := rt
	next.Sessions = make(map[string]config.SessionSpec, len(rt.Sessions))
	for k, v := range rt.Sessions {
		next.Sessions[k] = v
	}
	next.Sessions[name] = spec
	next.DefaultSession = name
	return next
}

func loadSQL() (string, error) {
	if f.sqlFile != "" {
		b, err := os.ReadFile(f.sqlFile)
		if err != nil {
			return "", fmt.Errorf("reading --sql-file: %w", err)
		}
		return string(b), nil
	}
	if f.sql == "" {
		return "", fmt.Errorf("one of --sql or --sql-file is required in --mode cli")
	}
	return f.sql, nil
}

// parseParams converts repeated "N=VALUE" flags into positional parameters,
// rejecting anything but a contiguous 1..max prefix (SPEC_FULL.md's
// contiguous-prefix rule, mirroring cli.rs's parse_params).
func parseParams(entries []string) ([]json.RawMessage, error) {
	byIndex := make(map[int]json.RawMessage, len(entries))
	for _, entry := range entries {
		idx, raw, err := splitIndexValue(entry)
		if err != nil {
			return nil, err
		}
		if idx < 1 {
			return nil, fmt.Errorf("param index must start at 1")
		}
		v, err := json.Marshal(parseParamValue(raw))
		if err != nil {
			return nil, err
		}
		byIndex[idx] = v
	}
	if len(byIndex) == 0 {
		return nil, nil
	}

	indices := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	max := indices[len(indices)-1]

	out := make([]json.RawMessage, max)
	for i := 1; i <= max; i++ {
		v, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("missing parameter index %d", i)
		}
		out[i-1] = v
	}
	return out, nil
}

func splitIndexValue(entry string) (int, string, error) {
	left, right, ok := strings.Cut(entry, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid param %q, expected N=value", entry)
	}
	idx, err := strconv.Atoi(left)
	if err != nil {
		return 0, "", fmt.Errorf("invalid param index in %q", entry)
	}
	return idx, right, nil
}

// parseParamValue mirrors cli.rs's parse_param_value: null/true/false and
// numeric literals decode to their typed JSON equivalent, everything else
// stays a JSON string.
func parseParamValue(v string) any {
	switch v {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if fl, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(fl) && !math.IsInf(fl, 0) {
		return fl
	}
	return v
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
