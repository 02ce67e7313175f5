package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// TagRepo handles tags.
type TagRepo struct {
	db sqlx.ExtContext
}

func NewTagRepo(db sqlx.ExtContext) *TagRepo { return &TagRepo{db: db} }

func (r *TagRepo) Insert(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO tags(name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *TagRepo) IDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, `SELECT tag_id FROM tags WHERE name = ? ORDER BY tag_id LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *TagRepo) List(ctx context.Context) ([]Tag, error) {
	out := []Tag{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT tag_id, name, created_at FROM tags ORDER BY name`)
	return out, err
}

func (r *TagRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE tag_id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TagRepo) Names(ctx context.Context) ([]string, error) {
	var out []string
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT name FROM tags ORDER BY name`)
	return out, err
}
