package pgadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RowIterator streams a single query's result row by row, deferring both
// the transaction commit and the connection release until the caller has
// drained every row (or abandoned the iteration early on a too-large
// result or a cancellation). This is what makes row emission genuinely
// lazy rather than the buffer-then-emit shape of the original executor.
type RowIterator struct {
	conn    *pgxpool.Conn
	tx      pgx.Tx
	rows    pgx.Rows
	wrapped bool
	// columnNames names the statement's own columns, used only when
	// !wrapped to key the fallback-decoded JSON object.
	columnNames []string
	done        bool
	untrack     func()
}

// Next advances to the next row, returning it as raw JSON bytes. When the
// query ran through the to_jsonb wrapper (wrapped), that is the sole
// row_json column verbatim. When it fell back to running the statement
// directly (utility statements the wrapper cannot parse, such as SHOW and
// EXPLAIN), the row's own columns are decoded and re-assembled into a JSON
// object keyed by column name. ok is false once rows are exhausted; check
// Err after. Errors are classified through mapError so a cancellation or
// runtime SQL error surfacing mid-fetch comes out as a *aerr.E/*sqlerr.E,
// not a raw pgx/context error, same as everything Execute itself returns.
func (it *RowIterator) Next(ctx context.Context) (raw []byte, ok bool, err error) {
	if it.done {
		return nil, false, nil
	}
	if !it.rows.Next() {
		it.done = true
		return nil, false, mapError(ctx, it.rows.Err())
	}
	if it.wrapped {
		var s string
		if err := it.rows.Scan(&s); err != nil {
			it.done = true
			return nil, false, mapError(ctx, err)
		}
		return []byte(s), true, nil
	}
	return it.decodeFallbackRow(ctx)
}

// decodeFallbackRow ports db.rs's row_to_json_fallback/decode_row_value_fallback:
// build a JSON object from the row's own typed columns rather than assuming
// a single row_json column. pgx.Rows.Values decodes each column through its
// registered pgtype codec, so the per-type switch the original needs is
// already done; this only has to re-key the result by column name and
// round-trip it through encoding/json.
func (it *RowIterator) decodeFallbackRow(ctx context.Context) ([]byte, bool, error) {
	values, err := it.rows.Values()
	if err != nil {
		it.done = true
		return nil, false, mapError(ctx, err)
	}
	obj := make(map[string]any, len(values))
	for i, v := range values {
		name := fmt.Sprintf("col_%d", i)
		if i < len(it.columnNames) {
			name = it.columnNames[i]
		}
		obj[name] = normalizeFallbackValue(v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		it.done = true
		return nil, false, err
	}
	return raw, true, nil
}

// normalizeFallbackValue adapts a pgx-decoded column value into something
// encoding/json can always marshal, mirroring the original's fallback to a
// string representation for a type it has no dedicated case for.
func normalizeFallbackValue(v any) any {
	switch t := v.(type) {
	case float32:
		return float64(t)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", t[0:4], t[4:6], t[6:8], t[8:10], t[10:16])
	default:
		return t
	}
}

// Close commits the underlying transaction (rows were fully consumed) and
// releases the connection back to the pool. Safe to call more than once.
func (it *RowIterator) Close(ctx context.Context) error {
	if it.conn == nil {
		return nil
	}
	it.rows.Close()
	err := mapError(ctx, it.tx.Commit(ctx))
	it.untrack()
	it.conn.Release()
	it.conn = nil
	return err
}

// Abort rolls back the transaction instead of committing, used when a
// result is discarded partway through (result_too_large, cancellation).
func (it *RowIterator) Abort(ctx context.Context) {
	if it.conn == nil {
		return
	}
	it.rows.Close()
	_ = it.tx.Rollback(ctx)
	it.untrack()
	it.conn.Release()
	it.conn = nil
}
