// Package session keeps one pgxpool.Pool per named Connection Spec alive
// for the life of the process, creating pools lazily on first use and
// reusing them across requests (spec §4.3).
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentfirst-data/afpsql/internal/aerr"
	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/connspec"
	"github.com/agentfirst-data/afpsql/internal/pgadapter"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// Registry maps a session name to its pgxpool.Pool, opening connections on
// demand and caching them by the resolved connection string so a `config`
// update that leaves a session's Connection Spec unchanged does not tear
// down and reopen its pool.
type Registry struct {
	mu     sync.Mutex
	pools  map[string]*entry
	writer *writer.Writer
}

type entry struct {
	connString string
	pool       *pgxpool.Pool
}

// New returns an empty Registry. w receives a `notice` event for each
// NOTICE/WARNING PostgreSQL raises on a pool connection while a query is
// tracked on it; notices raised outside that window are dropped.
func New(w *writer.Writer) *Registry {
	return &Registry{pools: make(map[string]*entry), writer: w}
}

// Acquire returns the pool for name, resolving its Connection Spec from rt
// and opening a new pool if none exists yet or the spec changed since the
// cached pool was opened.
func (r *Registry) Acquire(ctx context.Context, rt config.Runtime, name string) (*pgxpool.Pool, error) {
	spec, ok := rt.Sessions[name]
	if !ok {
		return nil, aerr.New(aerr.ConnectFailed, fmt.Sprintf("unknown session: %s", name))
	}

	connString, err := connspec.Resolve(spec)
	if err != nil {
		return nil, aerr.Wrap(aerr.ConnectFailed, "resolving connection spec", err)
	}

	r.mu.Lock()
	if e, ok := r.pools[name]; ok && e.connString == connString {
		pool := e.pool
		r.mu.Unlock()
		return pool, nil
	}
	r.mu.Unlock()

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, aerr.Wrap(aerr.ConnectFailed, "parsing connection string", err)
	}
	poolCfg.ConnConfig.OnNotice = pgadapter.OnNotice(r.writer)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, aerr.Wrap(aerr.ConnectFailed, "opening connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, aerr.Wrap(aerr.ConnectFailed, "pinging new connection", err)
	}

	r.mu.Lock()
	if old, ok := r.pools[name]; ok && old.pool != pool {
		go old.pool.Close()
	}
	r.pools[name] = &entry{connString: connString, pool: pool}
	r.mu.Unlock()

	return pool, nil
}

// Close releases every pool the registry has opened. Called once at
// process shutdown (the `close` request, spec §4.7).
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, e := range r.pools {
		e.pool.Close()
		delete(r.pools, name)
	}
}

// Len reports how many pools are currently open. The router reads this
// right before calling Close, to report sessions_closed in the `close`
// event's trace.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}
