package logemit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

func TestEnabled(t *testing.T) {
	cases := []struct {
		filters  []string
		category string
		want     bool
	}{
		{nil, "query.result", false},
		{[]string{}, "query.result", false},
		{[]string{"all"}, "query.result", true},
		{[]string{"*"}, "connection.open", true},
		{[]string{"query.result"}, "query.result", true},
		{[]string{"query.result"}, "query.error", false},
		{[]string{"query"}, "query.result", true},
		{[]string{"query"}, "query.error", true},
		{[]string{"connection"}, "query.result", false},
		{[]string{"ping"}, "ping", true},
	}
	for _, tc := range cases {
		if got := Enabled(tc.filters, tc.category); got != tc.want {
			t.Errorf("Enabled(%v, %q) = %v, want %v", tc.filters, tc.category, got, tc.want)
		}
	}
}

func TestEmitterGatesOnCategory(t *testing.T) {
	var buf bytes.Buffer
	w := writer.New(&buf)
	e := New(w)

	e.Emit([]string{"query"}, "query.result", protocol.Log{Trace: protocol.OnlyDuration(1)})
	if buf.Len() == 0 {
		t.Fatalf("expected an emitted log line")
	}

	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["event"] != "query.result" {
		t.Errorf("event = %v, want query.result", out["event"])
	}

	buf.Reset()
	e.Emit([]string{"connection"}, "query.result", protocol.Log{Trace: protocol.OnlyDuration(1)})
	if buf.Len() != 0 {
		t.Errorf("expected no output for disabled category, got %q", buf.String())
	}
}
