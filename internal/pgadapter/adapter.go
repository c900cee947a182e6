// Package pgadapter is the one place that talks to PostgreSQL: preparing
// statements to learn their parameter and column types without ever
// inspecting SQL text, choosing the command-tag path or row-returning path
// purely from that metadata (spec §4.6, invariant 3), and converting
// between JSON values and wire parameters.
//
// Grounded in db.rs and conn.rs from the original implementation, adapted
// from tokio_postgres/deadpool-postgres onto pgx/v5 and pgxpool, and
// reworked from buffer-then-emit into a row-by-row iterator so streaming
// is genuinely lazy.
package pgadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/protocol"
)

var stmtCounter atomic.Uint64

func nextStmtName() string {
	return fmt.Sprintf("afpsql_%d", stmtCounter.Add(1))
}

// QueryResult is the row-returning outcome: Columns describes the actual
// query output (never the to_jsonb wrapper), Rows streams it lazily.
type QueryResult struct {
	Columns []protocol.ColumnInfo
	Rows    *RowIterator
}

// CommandResult is the non-row-returning outcome. The pipeline normalizes
// Affected into the "EXECUTE N" command tag spec §4.6 requires rather than
// surfacing PostgreSQL's own command tag verbatim.
type CommandResult struct {
	Affected int64
}

// Execute prepares and runs sql against pool under opts, returning exactly
// one of (*QueryResult, *CommandResult). The choice between them is made
// solely from the prepared statement's field count (invariant 3).
func Execute(ctx context.Context, pool *pgxpool.Pool, id, sessionName, sql string, rawParams []json.RawMessage, opts config.ResolvedOptions, onAcquire func(*Cancelable)) (*QueryResult, *CommandResult, error) {
	poolConn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, mapError(ctx, err)
	}
	untrack := Track(poolConn.Conn().PgConn(), id, sessionName)
	if onAcquire != nil {
		onAcquire(&Cancelable{pgConn: poolConn.Conn().PgConn()})
	}

	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := poolConn.BeginTx(ctx, txOpts)
	if err != nil {
		untrack()
		poolConn.Release()
		return nil, nil, mapError(ctx, err)
	}

	if err := applySettings(ctx, tx, opts); err != nil {
		_ = tx.Rollback(ctx)
		untrack()
		poolConn.Release()
		return nil, nil, err
	}

	conn := tx.Conn()
	name := nextStmtName()
	stmt, err := conn.Prepare(ctx, name, sql)
	if err != nil {
		_ = tx.Rollback(ctx)
		untrack()
		poolConn.Release()
		return nil, nil, mapError(ctx, err)
	}
	defer conn.Deallocate(ctx, name)

	params, err := buildParams(rawParams, stmt.ParamOIDs)
	if err != nil {
		_ = tx.Rollback(ctx)
		untrack()
		poolConn.Release()
		return nil, nil, err
	}

	if len(stmt.Fields) == 0 {
		tag, err := tx.Exec(ctx, sql, params...)
		if err != nil {
			_ = tx.Rollback(ctx)
			untrack()
			poolConn.Release()
			return nil, nil, mapError(ctx, err)
		}
		if err := tx.Commit(ctx); err != nil {
			untrack()
			poolConn.Release()
			return nil, nil, mapError(ctx, err)
		}
		untrack()
		poolConn.Release()
		return nil, &CommandResult{Affected: tag.RowsAffected()}, nil
	}

	columns := columnsFromFields(stmt.Fields)
	rows, wrapped, err := queryWrapped(ctx, tx, sql, params)
	if err != nil {
		_ = tx.Rollback(ctx)
		untrack()
		poolConn.Release()
		return nil, nil, err
	}

	return &QueryResult{
		Columns: columns,
		Rows: &RowIterator{
			conn:        poolConn,
			tx:          tx,
			rows:        rows,
			wrapped:     wrapped,
			columnNames: columnNames(columns),
			untrack:     untrack,
		},
	}, nil, nil
}

func columnNames(columns []protocol.ColumnInfo) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// queryWrapped runs sql through a `with ... to_jsonb` wrapper so every row
// comes back as one jsonb column, preserving PostgreSQL's own value
// serialization instead of re-deriving it column by column. Statements the
// wrapper cannot parse (utility statements such as SHOW/EXPLAIN) fall
// back to running sql directly; the returned wrapped flag tells RowIterator
// whether it is reading that single row_json column or the statement's own
// raw columns, so it decodes each row the right way (rows.go's
// decodeFallbackRow, ported from db.rs's row_to_json_fallback).
// Grounded in db.rs's savepoint-guarded wrap-and-retry.
func queryWrapped(ctx context.Context, tx pgx.Tx, sql string, params []any) (pgx.Rows, bool, error) {
	if _, err := tx.Exec(ctx, "savepoint afpsql_wrap"); err != nil {
		return nil, false, mapError(ctx, err)
	}

	wrapped := fmt.Sprintf("with __afpsql_rows as (%s) select to_jsonb(__afpsql_rows) as row_json from __afpsql_rows", sql)
	rows, err := tx.Query(ctx, wrapped, params...)
	if err == nil {
		if _, relErr := tx.Exec(ctx, "release savepoint afpsql_wrap"); relErr != nil {
			rows.Close()
			return nil, false, mapError(ctx, relErr)
		}
		return rows, true, nil
	}

	if _, rbErr := tx.Exec(ctx, "rollback to savepoint afpsql_wrap"); rbErr != nil {
		return nil, false, mapError(ctx, rbErr)
	}
	if _, relErr := tx.Exec(ctx, "release savepoint afpsql_wrap"); relErr != nil {
		return nil, false, mapError(ctx, relErr)
	}

	rows, err = tx.Query(ctx, sql, params...)
	if err != nil {
		return nil, false, mapError(ctx, err)
	}
	return rows, false, nil
}

func applySettings(ctx context.Context, tx pgx.Tx, opts config.ResolvedOptions) error {
	if opts.StatementTimeoutMS > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("set local statement_timeout = %d", opts.StatementTimeoutMS)); err != nil {
			return mapError(ctx, err)
		}
	}
	if opts.LockTimeoutMS > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("set local lock_timeout = %d", opts.LockTimeoutMS)); err != nil {
			return mapError(ctx, err)
		}
	}
	return nil
}

func columnsFromFields(fields []pgconn.FieldDescription) []protocol.ColumnInfo {
	m := pgtype.NewMap()
	cols := make([]protocol.ColumnInfo, len(fields))
	for i, f := range fields {
		typeName := fmt.Sprintf("oid:%d", f.DataTypeOID)
		if t, ok := m.TypeForOID(f.DataTypeOID); ok {
			typeName = t.Name
		}
		cols[i] = protocol.ColumnInfo{Name: string(f.Name), Type: typeName}
	}
	return cols
}

// Cancelable is handed to the caller's onAcquire hook as soon as Execute
// has a live connection, so a concurrent `cancel{id}` can reach the exact
// backend running the query rather than an arbitrary pooled connection.
// PostgreSQL's cancel protocol is out-of-band: a cancel request opens a
// second socket carrying the target backend's process id and secret key.
type Cancelable struct {
	pgConn *pgconn.PgConn
}

// Cancel sends an out-of-band cancellation for the backend this Cancelable
// was captured from.
func (c *Cancelable) Cancel(ctx context.Context) error {
	return c.pgConn.CancelRequest(ctx)
}
