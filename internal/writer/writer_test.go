package writer

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/agentfirst-data/afpsql/internal/protocol"
)

func TestEmitWritesOneLineOfJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	if err := w.Emit(protocol.Pong{Trace: protocol.PongTrace{UptimeS: 3}}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "pong" {
		t.Errorf("code = %v, want pong", decoded["code"])
	}
}

func TestEmitIsConcurrencySafe(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Emit(protocol.Pong{Trace: protocol.PongTrace{UptimeS: 1}})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %q is not valid JSON: %v", line, err)
		}
	}
}
