// Package pipeline drives one `query` request through prepare, validate,
// path-select, and emit, the state machine spec §4.6 describes, on top of
// internal/pgadapter. It is the only caller of pgadapter.Execute.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentfirst-data/afpsql/internal/aerr"
	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/logemit"
	"github.com/agentfirst-data/afpsql/internal/pgadapter"
	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/sqlerr"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// Pipeline executes query requests and emits their events.
type Pipeline struct {
	writer *writer.Writer
	logs   *logemit.Emitter
}

// New builds a Pipeline writing events through w.
func New(w *writer.Writer) *Pipeline {
	return &Pipeline{writer: w, logs: logemit.New(w)}
}

// Run executes in against pool under the already-resolved session name
// and options, emitting exactly the terminal (or streamed) event sequence
// spec §4.6/§8 requires before returning.
func (p *Pipeline) Run(ctx context.Context, pool *pgxpool.Pool, in protocol.QueryInput, sessionName string, opts config.ResolvedOptions, logFilters []string, onAcquire func(*pgadapter.Cancelable)) protocol.Code {
	start := time.Now()
	sess := sessionName

	qr, cr, err := pgadapter.Execute(ctx, pool, in.ID, sessionName, in.SQL, in.Params, opts, onAcquire)
	if err != nil {
		return p.emitError(in.ID, &sess, err, start, logFilters)
	}

	if cr != nil {
		commandTag := fmt.Sprintf("EXECUTE %d", cr.Affected)
		trace := protocol.Trace{
			DurationMS:   elapsedMS(start),
			RowCount:     intPtr(0),
			PayloadBytes: intPtr(0),
		}
		_ = p.writer.Emit(protocol.Result{
			ID:         strPtr(in.ID),
			Session:    &sess,
			CommandTag: commandTag,
			Columns:    []protocol.ColumnInfo{},
			Rows:       []json.RawMessage{},
			RowCount:   0,
			Trace:      trace,
		})
		p.logs.Emit(logFilters, "query.result", protocol.Log{
			RequestID:  strPtr(in.ID),
			Session:    &sess,
			CommandTag: strPtr(commandTag),
			Trace:      trace,
		})
		return protocol.CodeResult
	}

	if opts.StreamRows {
		return p.runStreaming(ctx, in.ID, sess, qr, opts, start, logFilters)
	}
	return p.runInline(ctx, in.ID, sess, qr, opts, start, logFilters)
}

func (p *Pipeline) runInline(ctx context.Context, id, sess string, qr *pgadapter.QueryResult, opts config.ResolvedOptions, start time.Time, logFilters []string) protocol.Code {
	rows := make([]json.RawMessage, 0, 64)
	totalBytes := 0

	for {
		raw, ok, err := qr.Rows.Next(ctx)
		if err != nil {
			qr.Rows.Abort(ctx)
			return p.emitError(id, &sess, err, start, logFilters)
		}
		if !ok {
			break
		}
		totalBytes += len(raw)
		if len(rows)+1 > opts.InlineMaxRows || totalBytes > opts.InlineMaxBytes {
			qr.Rows.Abort(ctx)
			trace := protocol.Trace{
				DurationMS:   elapsedMS(start),
				RowCount:     intPtr(len(rows) + 1),
				PayloadBytes: intPtr(totalBytes),
			}
			return p.emitTooLarge(id, trace, logFilters)
		}
		rows = append(rows, json.RawMessage(raw))
	}

	if err := qr.Rows.Close(ctx); err != nil {
		return p.emitError(id, &sess, err, start, logFilters)
	}

	trace := protocol.Trace{
		DurationMS:   elapsedMS(start),
		RowCount:     intPtr(len(rows)),
		PayloadBytes: intPtr(totalBytes),
	}
	_ = p.writer.Emit(protocol.Result{
		ID:         strPtr(id),
		Session:    &sess,
		CommandTag: fmt.Sprintf("ROWS %d", len(rows)),
		Columns:    qr.Columns,
		Rows:       rows,
		RowCount:   len(rows),
		Trace:      trace,
	})
	p.logs.Emit(logFilters, "query.result", protocol.Log{
		RequestID:  strPtr(id),
		Session:    &sess,
		CommandTag: strPtr(fmt.Sprintf("ROWS %d", len(rows))),
		Trace:      trace,
	})
	return protocol.CodeResult
}

func (p *Pipeline) runStreaming(ctx context.Context, id, sess string, qr *pgadapter.QueryResult, opts config.ResolvedOptions, start time.Time, logFilters []string) protocol.Code {
	_ = p.writer.Emit(protocol.ResultStart{ID: id, Session: &sess, Columns: qr.Columns})

	batch := make([]json.RawMessage, 0, opts.BatchRows)
	batchBytes := 0
	totalBytes := 0
	rowCount := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		_ = p.writer.Emit(protocol.ResultRows{ID: id, Rows: batch, RowsBatchCount: len(batch)})
		batch = make([]json.RawMessage, 0, opts.BatchRows)
		batchBytes = 0
	}

	for {
		raw, ok, err := qr.Rows.Next(ctx)
		if err != nil {
			qr.Rows.Abort(ctx)
			return p.emitError(id, &sess, err, start, logFilters)
		}
		if !ok {
			break
		}
		rowCount++
		totalBytes += len(raw)
		batchBytes += len(raw)
		batch = append(batch, json.RawMessage(raw))
		if len(batch) >= opts.BatchRows || batchBytes >= opts.BatchBytes {
			flush()
		}
	}
	flush()

	if err := qr.Rows.Close(ctx); err != nil {
		return p.emitError(id, &sess, err, start, logFilters)
	}

	trace := protocol.Trace{
		DurationMS:   elapsedMS(start),
		RowCount:     intPtr(rowCount),
		PayloadBytes: intPtr(totalBytes),
	}
	_ = p.writer.Emit(protocol.ResultEnd{
		ID:         id,
		Session:    &sess,
		CommandTag: fmt.Sprintf("ROWS %d", rowCount),
		Trace:      trace,
	})
	p.logs.Emit(logFilters, "query.result", protocol.Log{
		RequestID:  strPtr(id),
		Session:    &sess,
		CommandTag: strPtr(fmt.Sprintf("ROWS %d", rowCount)),
		Trace:      trace,
	})
	return protocol.CodeResultEnd
}

func (p *Pipeline) emitTooLarge(id string, trace protocol.Trace, logFilters []string) protocol.Code {
	_ = p.writer.Emit(protocol.Error{
		ID:        strPtr(id),
		ErrorCode: string(aerr.ResultTooLarge),
		Message:   "result exceeds inline limits; retry with stream_rows=true",
		Retryable: false,
		Trace:     trace,
	})
	errCode := string(aerr.ResultTooLarge)
	p.logs.Emit(logFilters, "query.error", protocol.Log{
		RequestID: strPtr(id),
		ErrorCode: &errCode,
		Trace:     trace,
	})
	return protocol.CodeError
}

func (p *Pipeline) emitError(id string, sess *string, err error, start time.Time, logFilters []string) protocol.Code {
	trace := protocol.OnlyDuration(elapsedMS(start))

	var sqlErr *sqlerr.E
	if errors.As(err, &sqlErr) {
		_ = p.writer.Emit(protocol.SQLError{
			ID:       strPtr(id),
			Session:  sess,
			SQLState: sqlErr.SQLState,
			Message:  sqlErr.Message,
			Detail:   optStr(sqlErr.Detail),
			Hint:     optStr(sqlErr.Hint),
			Position: optStr(sqlErr.Position),
			Trace:    trace,
		})
		p.logs.Emit(logFilters, "query.sql_error", protocol.Log{
			RequestID: strPtr(id),
			Session:   sess,
			ErrorCode: strPtr(sqlErr.SQLState),
			Trace:     trace,
		})
		return protocol.CodeSQLError
	}

	var aErr *aerr.E
	code := aerr.InvalidRequest
	retryable := false
	msg := err.Error()
	if errors.As(err, &aErr) {
		code = aErr.Code
		retryable = aErr.Retryable()
		msg = aErr.Message
	}

	_ = p.writer.Emit(protocol.Error{
		ID:        strPtr(id),
		ErrorCode: string(code),
		Message:   msg,
		Retryable: retryable,
		Trace:     trace,
	})
	errCode := string(code)
	p.logs.Emit(logFilters, "query.error", protocol.Log{
		RequestID: strPtr(id),
		Session:   sess,
		ErrorCode: &errCode,
		Trace:     trace,
	})
	return protocol.CodeError
}

func elapsedMS(start time.Time) int64 { return time.Since(start).Milliseconds() }

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
