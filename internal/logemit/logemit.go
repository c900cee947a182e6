// Package logemit filters and emits the optional `log` diagnostic events
// spec §4.8 describes: a request's event category is matched against the
// live configuration's enabled set before anything is written.
package logemit

import (
	"strings"

	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// Enabled reports whether category is switched on by the configured set of
// log filters. An empty set disables everything; "all" or "*" enables
// everything; an exact match or a dotless group prefix (the token before
// category's first dot) also enables it.
func Enabled(filters []string, category string) bool {
	if len(filters) == 0 {
		return false
	}
	group, _, hasDot := strings.Cut(category, ".")
	if !hasDot {
		group = category
	}
	for _, f := range filters {
		if f == "all" || f == "*" || f == category {
			return true
		}
		if !strings.Contains(f, ".") && f == group {
			return true
		}
	}
	return false
}

// Emitter writes `log` events through w when the category is enabled for
// the filters in effect at call time.
type Emitter struct {
	w *writer.Writer
}

// New builds an Emitter over w.
func New(w *writer.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the event if category passes filters, ignoring write errors
// on stdout the same way every other event path does: log events never
// retry and never fall back to stderr.
func (e *Emitter) Emit(filters []string, category string, l protocol.Log) {
	if !Enabled(filters, category) {
		return
	}
	l.Event = category
	_ = e.w.Emit(l)
}
