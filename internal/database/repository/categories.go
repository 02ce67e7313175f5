package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db sqlx.ExtContext
}

func NewCategoryRepo(db sqlx.ExtContext) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Insert(ctx context.Context, c Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories(name, category_type) VALUES (?, ?)`, c.Name, c.CategoryType)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// IDByNameType looks up a category by its exact (name, category_type) pair.
func (r *CategoryRepo) IDByNameType(ctx context.Context, name, categoryType string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id,
		`SELECT category_id FROM categories WHERE name = ? AND category_type = ? ORDER BY category_id LIMIT 1`,
		name, categoryType)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	out := []Category{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT category_id, name, category_type, created_at FROM categories ORDER BY name`)
	return out, err
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE category_id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *CategoryRepo) Names(ctx context.Context) ([]string, error) {
	var out []string
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT DISTINCT name FROM categories ORDER BY name`)
	return out, err
}

// NamesByType lists the distinct names used under one category_type.
func (r *CategoryRepo) NamesByType(ctx context.Context, categoryType string) ([]string, error) {
	var out []string
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT DISTINCT name FROM categories WHERE category_type = ? ORDER BY name`, categoryType)
	return out, err
}
