// Package protocol defines the AFD wire types: the tagged JSONL request and
// event objects exchanged on stdin/stdout, and the per-query options a
// request may carry. Every object is discriminated by a `code` field.
package protocol

import "encoding/json"

// Code is the `code` discriminator carried by every AFD object.
type Code string

const (
	CodeQuery       Code = "query"
	CodeCancel      Code = "cancel"
	CodeConfig      Code = "config"
	CodePing        Code = "ping"
	CodeClose       Code = "close"
	CodeResult      Code = "result"
	CodeResultStart Code = "result_start"
	CodeResultRows  Code = "result_rows"
	CodeResultEnd   Code = "result_end"
	CodeSQLError    Code = "sql_error"
	CodeError       Code = "error"
	CodeNotice      Code = "notice"
	CodePong        Code = "pong"
	CodeLog         Code = "log"
)

// envelope is used only to sniff the `code` field before decoding the rest
// of an input line into its concrete shape.
type envelope struct {
	Code Code `json:"code"`
}

// QueryOptions is the optional, per-query `options` object on a `query`
// request. Every field but StreamRows is a pointer so the resolver can
// distinguish "not supplied" from "supplied as the zero value"; StreamRows
// has no such ambiguity since its unsupplied default (false) already is
// its zero value.
type QueryOptions struct {
	StreamRows         bool  `json:"stream_rows,omitempty"`
	BatchRows          *int  `json:"batch_rows,omitempty"`
	BatchBytes         *int  `json:"batch_bytes,omitempty"`
	StatementTimeoutMS *int  `json:"statement_timeout_ms,omitempty"`
	LockTimeoutMS      *int  `json:"lock_timeout_ms,omitempty"`
	ReadOnly           *bool `json:"read_only,omitempty"`
	InlineMaxRows      *int  `json:"inline_max_rows,omitempty"`
	InlineMaxBytes     *int  `json:"inline_max_bytes,omitempty"`
}

// QueryInput is a decoded `query` request.
type QueryInput struct {
	ID      string            `json:"id"`
	Session *string           `json:"session,omitempty"`
	SQL     string            `json:"sql"`
	Params  []json.RawMessage `json:"params,omitempty"`
	Options QueryOptions      `json:"options,omitempty"`
}

// CancelInput is a decoded `cancel` request.
type CancelInput struct {
	ID string `json:"id"`
}

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Trace accompanies every terminal or streamed-end event.
type Trace struct {
	DurationMS   int64 `json:"duration_ms"`
	RowCount     *int  `json:"row_count,omitempty"`
	PayloadBytes *int  `json:"payload_bytes,omitempty"`
}

// OnlyDuration builds a Trace carrying just the elapsed time, for events
// that never reached row accounting.
func OnlyDuration(ms int64) Trace { return Trace{DurationMS: ms} }

// Event is satisfied by every concrete output object.
type Event interface {
	json.Marshaler
}

// Result is the inline terminal event for a non-streamed row-producing or
// command-path query.
type Result struct {
	ID         *string           `json:"id,omitempty"`
	Session    *string           `json:"session,omitempty"`
	CommandTag string            `json:"command_tag"`
	Columns    []ColumnInfo      `json:"columns"`
	Rows       []json.RawMessage `json:"rows"`
	RowCount   int               `json:"row_count"`
	Trace      Trace             `json:"trace"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeResult, alias(r)})
}

// ResultStart opens a streaming response.
type ResultStart struct {
	ID      string       `json:"id"`
	Session *string      `json:"session,omitempty"`
	Columns []ColumnInfo `json:"columns"`
}

func (r ResultStart) MarshalJSON() ([]byte, error) {
	type alias ResultStart
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeResultStart, alias(r)})
}

// ResultRows is one streamed batch.
type ResultRows struct {
	ID             string            `json:"id"`
	Rows           []json.RawMessage `json:"rows"`
	RowsBatchCount int               `json:"rows_batch_count"`
}

func (r ResultRows) MarshalJSON() ([]byte, error) {
	type alias ResultRows
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeResultRows, alias(r)})
}

// ResultEnd closes a streaming response.
type ResultEnd struct {
	ID         string  `json:"id"`
	Session    *string `json:"session,omitempty"`
	CommandTag string  `json:"command_tag"`
	Trace      Trace   `json:"trace"`
}

func (r ResultEnd) MarshalJSON() ([]byte, error) {
	type alias ResultEnd
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeResultEnd, alias(r)})
}

// SQLError surfaces a server-side failure verbatim.
type SQLError struct {
	ID       *string `json:"id,omitempty"`
	Session  *string `json:"session,omitempty"`
	SQLState string  `json:"sqlstate"`
	Message  string  `json:"message"`
	Detail   *string `json:"detail,omitempty"`
	Hint     *string `json:"hint,omitempty"`
	Position *string `json:"position,omitempty"`
	Trace    Trace   `json:"trace"`
}

func (e SQLError) MarshalJSON() ([]byte, error) {
	type alias SQLError
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeSQLError, alias(e)})
}

// Error surfaces a client/runtime/transport failure from the closed code set.
type Error struct {
	ID        *string `json:"id,omitempty"`
	ErrorCode string  `json:"error_code"`
	Message   string  `json:"error"`
	Retryable bool    `json:"retryable"`
	Trace     Trace   `json:"trace"`
}

func (e Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeError, alias(e)})
}

// Notice forwards a PostgreSQL NOTICE/WARNING raised during execution.
type Notice struct {
	ID      string  `json:"id"`
	Session *string `json:"session,omitempty"`
	Message string  `json:"message"`
	Detail  *string `json:"detail,omitempty"`
	Trace   Trace   `json:"trace"`
}

func (n Notice) MarshalJSON() ([]byte, error) {
	type alias Notice
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeNotice, alias(n)})
}

// PongTrace is the counters object on a `pong` event.
type PongTrace struct {
	UptimeS       int64  `json:"uptime_s"`
	RequestsTotal uint64 `json:"requests_total"`
	InFlight      int    `json:"in_flight"`
}

// Pong answers a `ping` request.
type Pong struct {
	Trace PongTrace `json:"trace"`
}

func (p Pong) MarshalJSON() ([]byte, error) {
	type alias Pong
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodePong, alias(p)})
}

// CloseTrace is the counters object on a `close` event.
type CloseTrace struct {
	UptimeS        int64  `json:"uptime_s"`
	RequestsTotal  uint64 `json:"requests_total"`
	SessionsClosed int    `json:"sessions_closed"`
}

// Close answers a `close` request after in-flight queries have drained.
type Close struct {
	Message string     `json:"message"`
	Trace   CloseTrace `json:"trace"`
}

func (c Close) MarshalJSON() ([]byte, error) {
	type alias Close
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeClose, alias(c)})
}

// Config echoes the full resolved configuration after a `config` request
// mutates it, with every "_secret" field already redacted by the caller.
type Config struct {
	Config any `json:"config"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeConfig, alias(c)})
}

// Log is an optional structured diagnostic event gated by log category
// filters (spec §4.8).
type Log struct {
	Event      string  `json:"event"`
	RequestID  *string `json:"request_id,omitempty"`
	Session    *string `json:"session,omitempty"`
	ErrorCode  *string `json:"error_code,omitempty"`
	CommandTag *string `json:"command_tag,omitempty"`
	Trace      Trace   `json:"trace"`
}

func (l Log) MarshalJSON() ([]byte, error) {
	type alias Log
	return json.Marshal(struct {
		Code Code `json:"code"`
		alias
	}{CodeLog, alias(l)})
}
