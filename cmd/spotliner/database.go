package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// openDatabase opens a pgx-backed connection and waits for the instance to
// accept pings, backing off between attempts. Containerized deploys start
// the database and the API together, so the first pings routinely fail.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	backoff := 250 * time.Millisecond
	for {
		pingCtx, pingCancel := context.WithTimeout(waitCtx, 5*time.Second)
		err = db.PingContext(pingCtx)
		pingCancel()
		if err == nil {
			return db, nil
		}

		select {
		case <-waitCtx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		case <-time.After(backoff):
		}

		log.Warn().Err(err).Dur("backoff", backoff).Msg("database not ready, retrying")
		if backoff < 4*time.Second {
			backoff *= 2
		}
	}
}
