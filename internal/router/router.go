// Package router is the single consumer of decoded input objects: it
// validates required fields, tracks in-flight queries by id, and dispatches
// to the query pipeline or to the config/ping/close/cancel handlers (spec
// §5).
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentfirst-data/afpsql/internal/aerr"
	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/logemit"
	"github.com/agentfirst-data/afpsql/internal/pgadapter"
	"github.com/agentfirst-data/afpsql/internal/pipeline"
	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/session"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// inFlight is the registry entry spec §3 describes: {id, session,
// cancel_handle, start_time}.
type inFlight struct {
	session    string
	startTime  time.Time
	cancelFunc context.CancelFunc
	mu         sync.Mutex
	cancelable *pgadapter.Cancelable
}

// Router dispatches decoded AFD input objects and owns the in-flight query
// table, the session registry, and the live configuration snapshot.
type Router struct {
	writer   *writer.Writer
	store    *config.Store
	sessions *session.Registry
	pipeline *pipeline.Pipeline
	logs     *logemit.Emitter

	mu       sync.Mutex
	queries  map[string]*inFlight
	closing  bool

	startTime     time.Time
	requestsTotal atomic.Uint64
}

// New builds a Router over an initial configuration snapshot.
func New(w *writer.Writer, store *config.Store, sessions *session.Registry) *Router {
	return &Router{
		writer:    w,
		store:     store,
		sessions:  sessions,
		pipeline:  pipeline.New(w),
		logs:      logemit.New(w),
		queries:   make(map[string]*inFlight),
		startTime: time.Now(),
	}
}

// HandleQuery starts a query's pipeline in the background, after rejecting
// a duplicate in-flight id (spec invariant on the in-flight table).
func (r *Router) HandleQuery(in protocol.QueryInput) {
	r.requestsTotal.Add(1)

	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		r.rejectClosing(in.ID)
		return
	}
	if _, dup := r.queries[in.ID]; dup {
		r.mu.Unlock()
		r.rejectDuplicate(in.ID)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	entry := &inFlight{startTime: time.Now(), cancelFunc: cancel}
	r.queries[in.ID] = entry
	r.mu.Unlock()

	rt := r.store.Load()
	sessionName := config.ResolveSessionName(rt, in.Session)
	opts := config.Resolve(rt, in.Options)
	entry.session = sessionName

	go r.runQuery(ctx, in, rt, sessionName, opts, entry)
}

// runQuery runs in's pipeline to completion and returns the code of the
// terminal event it emitted; HandleQuery runs it as a goroutine and
// discards that code. A panic inside the query's task is recovered here and
// reported as an invalid_request `error` for in.ID.
func (r *Router) runQuery(ctx context.Context, in protocol.QueryInput, rt config.Runtime, sessionName string, opts config.ResolvedOptions, entry *inFlight) protocol.Code {
	defer func() {
		if rec := recover(); rec != nil {
			r.emitDuplicateOrInvalid(in.ID, fmt.Sprintf("internal error: %v", rec))
		}
		r.mu.Lock()
		delete(r.queries, in.ID)
		r.mu.Unlock()
	}()

	pool, err := r.sessions.Acquire(ctx, rt, sessionName)
	if err != nil {
		r.emitAcquireError(in.ID, sessionName, err)
		return protocol.CodeError
	}

	onAcquire := func(c *pgadapter.Cancelable) {
		entry.mu.Lock()
		entry.cancelable = c
		entry.mu.Unlock()
	}

	return r.pipeline.Run(ctx, pool, in, sessionName, opts, rt.Log, onAcquire)
}

// HandleCancel signals the matching in-flight query. An unknown id is a
// no-op (spec §5).
func (r *Router) HandleCancel(in protocol.CancelInput) {
	r.mu.Lock()
	entry, ok := r.queries[in.ID]
	r.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	cancelable := entry.cancelable
	entry.mu.Unlock()

	if cancelable != nil {
		_ = cancelable.Cancel(context.Background())
	}
	entry.cancelFunc()
}

// HandleConfig merges patch into the live configuration and echoes the
// redacted result as a `config` event (spec §4.4).
func (r *Router) HandleConfig(raw []byte) {
	patch, err := config.ParsePatch(raw)
	if err != nil {
		r.emitInvalidRequest("", "malformed config request: "+err.Error())
		return
	}

	cur := r.store.Load()
	next := config.Apply(cur, patch)
	r.store.Swap(next)

	_ = r.writer.Emit(protocol.Config{Config: config.Redacted(next)})
}

// HandlePing answers with process counters.
func (r *Router) HandlePing() {
	_ = r.writer.Emit(protocol.Pong{Trace: protocol.PongTrace{
		UptimeS:       int64(time.Since(r.startTime).Seconds()),
		RequestsTotal: r.requestsTotal.Load(),
		InFlight:      r.inFlightCount(),
	}})
}

// HandleClose stops accepting new input, waits (bounded) for in-flight
// queries to drain, forcefully cancels whatever remains, closes every
// session pool, and emits the final `close` event. Returns once it is
// safe for the caller to stop the process.
func (r *Router) HandleClose(ctx context.Context, grace time.Duration) {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	deadline := time.After(grace)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		if r.inFlightCount() == 0 {
			break wait
		}
		select {
		case <-deadline:
			break wait
		case <-ticker.C:
		}
	}

	r.mu.Lock()
	remaining := make([]*inFlight, 0, len(r.queries))
	for _, e := range r.queries {
		remaining = append(remaining, e)
	}
	r.mu.Unlock()
	for _, e := range remaining {
		e.mu.Lock()
		cancelable := e.cancelable
		e.mu.Unlock()
		if cancelable != nil {
			_ = cancelable.Cancel(ctx)
		}
		e.cancelFunc()
	}

	sessionsOpen := r.sessions.Len()
	r.sessions.Close()

	_ = r.writer.Emit(protocol.Close{
		Message: "shutdown complete",
		Trace: protocol.CloseTrace{
			UptimeS:        int64(time.Since(r.startTime).Seconds()),
			RequestsTotal:  r.requestsTotal.Load(),
			SessionsClosed: sessionsOpen,
		},
	})
}

func (r *Router) inFlightCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func (r *Router) emitAcquireError(id, sess string, err error) {
	code := aerr.ConnectFailed
	msg := err.Error()
	var e *aerr.E
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	trace := protocol.OnlyDuration(0)
	sessCopy := sess
	_ = r.writer.Emit(protocol.Error{
		ID:        strPtr(id),
		ErrorCode: string(code),
		Message:   msg,
		Retryable: code.Retryable(),
		Trace:     trace,
	})
	errCode := string(code)
	r.logs.Emit(r.store.Load().Log, "query.error", protocol.Log{
		RequestID: strPtr(id),
		Session:   &sessCopy,
		ErrorCode: &errCode,
		Trace:     trace,
	})
}

func (r *Router) emitDuplicateOrInvalid(id, message string) {
	var idPtr *string
	if id != "" {
		idPtr = &id
	}
	_ = r.writer.Emit(protocol.Error{
		ID:        idPtr,
		ErrorCode: string(aerr.InvalidRequest),
		Message:   message,
		Retryable: false,
		Trace:     protocol.OnlyDuration(0),
	})
}

func (r *Router) rejectDuplicate(id string) {
	r.emitDuplicateOrInvalid(id, "duplicate in-flight id")
}

func (r *Router) rejectClosing(id string) {
	r.emitDuplicateOrInvalid(id, "no longer accepting new queries")
}

// emitInvalidRequest reports a malformed request that never reached the
// in-flight table at all (bad code, missing id, malformed config body).
func (r *Router) emitInvalidRequest(id, message string) {
	r.emitDuplicateOrInvalid(id, message)
}

// RejectMalformed reports a line that failed to decode at all (invalid
// JSON, unknown code, or a query/cancel missing its required id), echoing
// whatever id the codec could recover (spec §5).
func (r *Router) RejectMalformed(id *string, message string) {
	if id == nil {
		r.emitInvalidRequest("", message)
		return
	}
	r.emitInvalidRequest(*id, message)
}

func strPtr(s string) *string { return &s }
