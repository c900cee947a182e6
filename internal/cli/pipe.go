package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/agentfirst-data/afpsql/internal/config"
	"github.com/agentfirst-data/afpsql/internal/protocol"
	"github.com/agentfirst-data/afpsql/internal/router"
	"github.com/agentfirst-data/afpsql/internal/session"
	"github.com/agentfirst-data/afpsql/internal/writer"
)

// closeGrace bounds how long `close` (explicit or EOF-triggered) waits for
// in-flight queries before forcefully cancelling them (spec §4.5).
const closeGrace = 30 * time.Second

// runPipe is the JSONL session loop: stdin → codec → router → writer →
// stdout (spec §4's data flow). It returns once stdin is exhausted and
// every in-flight query has drained or been cancelled.
func runPipe(initial config.Runtime) {
	w := writer.New(os.Stdout)
	store := config.NewStore(initial)
	sessions := session.New(w)
	r := router.New(w, store, sessions)

	reader := protocol.NewLineReader(os.Stdin)
	for {
		line, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			r.HandleClose(context.Background(), closeGrace)
			return
		}
		if err != nil {
			r.HandleClose(context.Background(), closeGrace)
			return
		}

		decoded, derr := protocol.DecodeLine(line)
		if derr != nil {
			if errors.Is(derr, protocol.ErrBlankLine) {
				continue
			}
			var lineErr *protocol.LineError
			if errors.As(derr, &lineErr) {
				r.RejectMalformed(lineErr.ID, lineErr.Error())
			}
			continue
		}

		switch decoded.Code {
		case protocol.CodeQuery:
			r.HandleQuery(*decoded.Query)
		case protocol.CodeCancel:
			r.HandleCancel(*decoded.Cancel)
		case protocol.CodeConfig:
			r.HandleConfig(decoded.Config)
		case protocol.CodePing:
			r.HandlePing()
		case protocol.CodeClose:
			r.HandleClose(context.Background(), closeGrace)
			return
		}
	}
}
