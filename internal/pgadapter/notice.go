package pgadapter

import (
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// noticeCtx correlates a PostgreSQL NOTICE/WARNING, which pgx delivers
// asynchronously per physical connection, back to the logical query that
// was running on that connection when it arrived.
type noticeCtx struct {
	id      string
	session string
}

var (
	noticeMu  sync.Mutex
	noticeMap = map[*pgconn.PgConn]noticeCtx{}
)

// Track records which query is currently running on conn so a notice
// arriving mid-execution can be attributed to it. The returned func clears
// the record; the caller must call it once the query no longer runs on conn.
func Track(conn *pgconn.PgConn, id, session string) func() {
	noticeMu.Lock()
	noticeMap[conn] = noticeCtx{id: id, session: session}
	noticeMu.Unlock()
	return func() {
		noticeMu.Lock()
		delete(noticeMap, conn)
		noticeMu.Unlock()
	}
}

// OnNotice builds the pgconn notice handler registered once per connection
// at pool-construction time (internal/session). It emits a `notice` event
// for whichever query Track last associated with the firing connection;
// a notice with no tracked query (e.g. one raised during connection setup)
// is dropped, matching handler.rs's policy of only forwarding notices tied
// to an active request.
func OnNotice(w *writer.Writer) func(*pgconn.PgConn, *pgconn.Notice) {
	return func(conn *pgconn.PgConn, n *pgconn.Notice) {
		noticeMu.Lock()
		ctx, ok := noticeMap[conn]
		noticeMu.Unlock()
		if !ok {
			return
		}
		var detail *string
		if n.Detail != "" {
			detail = &n.Detail
		}
		var session *string
		if ctx.session != "" {
			session = &ctx.session
		}
		_ = w.Emit(protocol.Notice{
			ID:      ctx.id,
			Session: session,
			Message: n.Message,
			Detail:  detail,
			Trace:   protocol.OnlyDuration(0),
		})
	}
}
