package db

import (
	"context"
	"database/sql"
	"fmt"

	"feedhub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// RunLog records the attempts of the background refresh job
type RunLog struct {
	db *sql.DB
}

func NewRunLog(d *DB) *RunLog {
	return &RunLog{db: d.db}
}

func (r *RunLog) Record(ctx context.Context, run models.RefreshRun) (int64, error) {
	var runErr interface{}
	if run.Error != "" {
		runErr = run.Error
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("refresh_runs").
		Cols("started_at", "finished_at", "attempt", "outcome", "item_count", "error").
		Values(run.StartedAt, run.FinishedAt, run.Attempt, run.Outcome, run.ItemCount, runErr)
	query, args := ib.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert refresh run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (r *RunLog) Recent(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "started_at", "finished_at", "attempt", "outcome", "item_count", "error").
		From("refresh_runs").
		OrderBy("id").Desc().
		Limit(limit)
	query, args := sb.Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	runs := []models.RefreshRun{}
	for rows.Next() {
		var run models.RefreshRun
		var runErr sql.NullString
		if err := rows.Scan(&run.Id, &run.StartedAt, &run.FinishedAt, &run.Attempt, &run.Outcome, &run.ItemCount, &runErr); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		run.Error = runErr.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
