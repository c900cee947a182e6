package pgadapter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentfirst-data/afpsql/internal/writer"
)

func TestOnNoticeForwardsTrackedQuery(t *testing.T) {
	var buf bytes.Buffer
	w := writer.New(&buf)
	handler := OnNotice(w)

	conn := new(pgconn.PgConn)
	untrack := Track(conn, "req-1", "default")
	defer untrack()

	handler(conn, &pgconn.Notice{Message: "table created"})

	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["code"] != "notice" || out["id"] != "req-1" || out["message"] != "table created" {
		t.Errorf("unexpected notice event: %+v", out)
	}
}

func TestOnNoticeDropsUntrackedConnection(t *testing.T) {
	var buf bytes.Buffer
	w := writer.New(&buf)
	handler := OnNotice(w)

	conn := new(pgconn.PgConn)
	handler(conn, &pgconn.Notice{Message: "ignored"})

	if buf.Len() != 0 {
		t.Errorf("expected no output for an untracked connection, got %q", buf.String())
	}
}

func TestTrackUntrackRemovesEntry(t *testing.T) {
	conn := new(pgconn.PgConn)
	untrack := Track(conn, "req-2", "default")

	noticeMu.Lock()
	_, ok := noticeMap[conn]
	noticeMu.Unlock()
	if !ok {
		t.Fatalf("expected conn to be tracked")
	}

	untrack()

	noticeMu.Lock()
	_, ok = noticeMap[conn]
	noticeMu.Unlock()
	if ok {
		t.Errorf("expected conn to be untracked after calling the returned func")
	}
}
