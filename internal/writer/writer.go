// Package writer is the single serialization point for AFD output. Every
// event, whether from the query pipeline, the log emitter, or the router
// itself, passes through here so that concurrent producers never interleave
// a partial JSON object on stdout (spec §4.9).
package writer

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/agentfirst-data/afpsql/internal/protocol"
)

// Writer serializes protocol.Event values to an underlying stream, one
// compact JSON object per line, flushing after each line.
type Writer struct {
	mu  sync.Mutex
	out *bufio.Writer
}

// New wraps w. w is typically os.Stdout; the writer is the only component
// permitted to touch it (spec §4.9).
func New(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// Emit serializes ev and writes it atomically: either the whole line lands
// on the stream or none of it does (spec invariant 4).
func (w *Writer) Emit(ev protocol.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(body); err != nil {
		return err
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return err
	}
	return w.out.Flush()
}
