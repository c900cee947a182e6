// Package config holds the process-wide AFD configuration: default session,
// named Connection Specs, inline/streaming thresholds, timeouts, and log
// filters. The live configuration is an immutable snapshot swapped
// atomically by `config` requests (spec §4.4, §9) so an in-flight query
// always sees a consistent view.
package config

import (
	"encoding/json"
	"sync/atomic"

	"github.com/agentfirst-data/afpsql/internal/protocol"
)

// SessionSpec is a Connection Spec: one of dsn_secret, conninfo_secret, or
// discrete fields, in the precedence order spec §3 defines. Fields ending
// in "_secret" are redacted wherever the configuration is echoed.
type SessionSpec struct {
	DSNSecret      *string `json:"dsn_secret,omitempty"`
	ConninfoSecret *string `json:"conninfo_secret,omitempty"`
	Host           *string `json:"host,omitempty"`
	Port           *int    `json:"port,omitempty"`
	User           *string `json:"user,omitempty"`
	DBName         *string `json:"dbname,omitempty"`
	PasswordSecret *string `json:"password_secret,omitempty"`
}

// merge overlays non-nil fields of patch onto s, matching config.rs's
// apply_update.
func (s SessionSpec) merge(patch SessionSpec) SessionSpec {
	if patch.DSNSecret != nil {
		s.DSNSecret = patch.DSNSecret
	}
	if patch.ConninfoSecret != nil {
		s.ConninfoSecret = patch.ConninfoSecret
	}
	if patch.Host != nil {
		s.Host = patch.Host
	}
	if patch.Port != nil {
		s.Port = patch.Port
	}
	if patch.User != nil {
		s.User = patch.User
	}
	if patch.DBName != nil {
		s.DBName = patch.DBName
	}
	if patch.PasswordSecret != nil {
		s.PasswordSecret = patch.PasswordSecret
	}
	return s
}

// Runtime is one immutable configuration snapshot.
type Runtime struct {
	DefaultSession     string                 `json:"default_session"`
	Sessions           map[string]SessionSpec `json:"sessions"`
	InlineMaxRows      int                    `json:"inline_max_rows"`
	InlineMaxBytes     int                    `json:"inline_max_bytes"`
	StatementTimeoutMS int                    `json:"statement_timeout_ms"`
	LockTimeoutMS      int                    `json:"lock_timeout_ms"`
	Log                []string               `json:"log"`
}

// Default returns the built-in configuration: a single "default" session
// with no explicit Connection Spec (resolved from environment/defaults at
// connect time), 1000-row/1MiB inline thresholds, 30s statement timeout,
// 5s lock timeout, and logging disabled.
func Default() Runtime {
	return Runtime{
		DefaultSession:     "default",
		Sessions:           map[string]SessionSpec{"default": {}},
		InlineMaxRows:      1000,
		InlineMaxBytes:     1 << 20,
		StatementTimeoutMS: 30_000,
		LockTimeoutMS:      5_000,
		Log:                nil,
	}
}

// Patch is the partial document a `config` request carries; unset fields
// leave the corresponding Runtime field untouched.
type Patch struct {
	DefaultSession     *string                `json:"default_session,omitempty"`
	Sessions           map[string]SessionSpec `json:"sessions,omitempty"`
	InlineMaxRows      *int                   `json:"inline_max_rows,omitempty"`
	InlineMaxBytes     *int                   `json:"inline_max_bytes,omitempty"`
	StatementTimeoutMS *int                   `json:"statement_timeout_ms,omitempty"`
	LockTimeoutMS      *int                   `json:"lock_timeout_ms,omitempty"`
	Log                []string               `json:"log,omitempty"`
}

// ParsePatch decodes a raw `config` request body.
func ParsePatch(raw json.RawMessage) (Patch, error) {
	var p Patch
	err := json.Unmarshal(raw, &p)
	return p, err
}

// Apply returns a new Runtime with patch merged over cur, following
// config.rs's apply_update: session entries are merged field-by-field, and
// the resulting default_session always has a (possibly empty) entry.
func Apply(cur Runtime, patch Patch) Runtime {
	next := cur
	next.Sessions = make(map[string]SessionSpec, len(cur.Sessions))
	for k, v := range cur.Sessions {
		next.Sessions[k] = v
	}

	if patch.DefaultSession != nil {
		next.DefaultSession = *patch.DefaultSession
	}
	if patch.InlineMaxRows != nil {
		next.InlineMaxRows = *patch.InlineMaxRows
	}
	if patch.InlineMaxBytes != nil {
		next.InlineMaxBytes = *patch.InlineMaxBytes
	}
	if patch.StatementTimeoutMS != nil {
		next.StatementTimeoutMS = *patch.StatementTimeoutMS
	}
	if patch.LockTimeoutMS != nil {
		next.LockTimeoutMS = *patch.LockTimeoutMS
	}
	if patch.Log != nil {
		next.Log = patch.Log
	}
	for name, s := range patch.Sessions {
		next.Sessions[name] = next.Sessions[name].merge(s)
	}
	if _, ok := next.Sessions[next.DefaultSession]; !ok {
		next.Sessions[next.DefaultSession] = SessionSpec{}
	}
	return next
}

// ResolvedOptions is the effective set of per-query knobs after merging a
// request's options over the live configuration's defaults (spec §4.6).
type ResolvedOptions struct {
	StreamRows         bool
	BatchRows          int
	BatchBytes         int
	StatementTimeoutMS int
	LockTimeoutMS      int
	ReadOnly           bool
	InlineMaxRows      int
	InlineMaxBytes     int
}

// Resolve merges q over rt's defaults, matching config.rs's resolve_options.
func Resolve(rt Runtime, q protocol.QueryOptions) ResolvedOptions {
	ro := ResolvedOptions{
		StreamRows:         q.StreamRows,
		BatchRows:          1000,
		BatchBytes:         262_144,
		StatementTimeoutMS: rt.StatementTimeoutMS,
		LockTimeoutMS:      rt.LockTimeoutMS,
		ReadOnly:           false,
		InlineMaxRows:      rt.InlineMaxRows,
		InlineMaxBytes:     rt.InlineMaxBytes,
	}
	if q.BatchRows != nil && *q.BatchRows > 0 {
		ro.BatchRows = *q.BatchRows
	}
	if q.BatchBytes != nil {
		if *q.BatchBytes > 1024 {
			ro.BatchBytes = *q.BatchBytes
		} else {
			ro.BatchBytes = 1024
		}
	}
	if q.StatementTimeoutMS != nil {
		ro.StatementTimeoutMS = *q.StatementTimeoutMS
	}
	if q.LockTimeoutMS != nil {
		ro.LockTimeoutMS = *q.LockTimeoutMS
	}
	if q.ReadOnly != nil {
		ro.ReadOnly = *q.ReadOnly
	}
	if q.InlineMaxRows != nil {
		ro.InlineMaxRows = *q.InlineMaxRows
	}
	if q.InlineMaxBytes != nil {
		ro.InlineMaxBytes = *q.InlineMaxBytes
	}
	return ro
}

// ResolveSessionName returns the effective session name for a request,
// defaulting to the configuration's default_session (spec §4.3).
func ResolveSessionName(rt Runtime, requested *string) string {
	if requested != nil && *requested != "" {
		return *requested
	}
	return rt.DefaultSession
}

// Store publishes Runtime snapshots atomically: readers always see a
// complete, consistent configuration, and an in-flight query keeps the
// snapshot it started with even if a `config` request lands mid-query.
type Store struct {
	v atomic.Value // Runtime
}

// NewStore seeds a Store with an initial snapshot.
func NewStore(initial Runtime) *Store {
	s := &Store{}
	s.v.Store(initial)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() Runtime { return s.v.Load().(Runtime) }

// Swap publishes next as the current snapshot and returns it.
func (s *Store) Swap(next Runtime) Runtime {
	s.v.Store(next)
	return next
}
