package db

import (
	"context"
	"database/sql"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// DefaultRetention is how long refresh run records are kept
const DefaultRetention = 30 * 24 * time.Hour

// Tidy removes refresh run records older than retention from the database
func Tidy(database string, retention time.Duration) (int64, error) {
	db, err := connection(database)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return tidy(context.Background(), db, time.Now().Add(-retention))
}

func tidy(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	deleteRuns := sb.SQLite.NewDeleteBuilder()
	sql, args := deleteRuns.DeleteFrom("refresh_runs").Where(deleteRuns.LessThan("started_at", before.UnixMilli())).Build()

	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Info("Tidying database")

	res, err := db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
