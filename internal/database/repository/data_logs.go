package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// DataLogRepo records import batches. Rows are never updated.
type DataLogRepo struct{ db sqlx.ExtContext }

func NewDataLogRepo(db sqlx.ExtContext) *DataLogRepo { return &DataLogRepo{db: db} }

func (r *DataLogRepo) Insert(ctx context.Context, collector, updateDate string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO data_logs(data_collector, update_date) VALUES (?, ?)`, collector, updateDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *DataLogRepo) Get(ctx context.Context, id int64) (*DataLog, error) {
	var l DataLog
	err := sqlx.GetContext(ctx, r.db, &l, `SELECT log_id, data_collector, update_date, created_at FROM data_logs WHERE log_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *DataLogRepo) List(ctx context.Context) ([]DataLog, error) {
	out := []DataLog{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT log_id, data_collector, update_date, created_at FROM data_logs ORDER BY log_id DESC`)
	return out, err
}
