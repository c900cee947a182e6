package pgadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentfirst-data/afpsql/internal/aerr"
	"github.com/agentfirst-data/afpsql/internal/sqlerr"
)

// mapError classifies a driver error into the two-axis taxonomy spec §4.7
// defines: a pgconn.PgError becomes a sqlerr.E carrying the server's
// SQLSTATE verbatim, except SQLSTATE 57014 (query_canceled), which becomes
// aerr.Cancelled; everything else becomes an aerr.E under the closed
// error_code enum.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "57014" {
			return aerr.Wrap(aerr.Cancelled, pgErr.Message, err)
		}
		return sqlerr.New(pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, positionOf(pgErr))
	}

	if ctx.Err() == context.Canceled {
		return aerr.Wrap(aerr.Cancelled, "query cancelled", err)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return aerr.Wrap(aerr.ConnectTimeout, "query deadline exceeded", err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return aerr.Wrap(aerr.ConnectFailed, "connecting to postgres", err)
	}

	return aerr.Wrap(aerr.InvalidRequest, "executing query", err)
}

func positionOf(pgErr *pgconn.PgError) string {
	if pgErr.Position != 0 {
		return fmt.Sprintf("%d", pgErr.Position)
	}
	if pgErr.InternalPosition != 0 {
		return fmt.Sprintf("%d", pgErr.InternalPosition)
	}
	return ""
}
