package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DefaultCategory is a baseline (name, category_type) pair.
type DefaultCategory struct {
	Name string
	Type string
}

// DefaultCategories are seeded into an empty database when enabled in config.
var DefaultCategories = []DefaultCategory{
	{"給与", "income"},
	{"賞与", "income"},
	{"その他収入", "income"},
	{"食費", "expense"},
	{"日用品", "expense"},
	{"住居", "expense"},
	{"水道光熱費", "expense"},
	{"通信費", "expense"},
	{"交通費", "expense"},
	{"医療費", "expense"},
	{"娯楽", "expense"},
}

// SeedDefaults ensures baseline categories exist for new databases.
// It is idempotent and safe to run on every startup: a non-empty
// categories table is left alone.
func SeedDefaults(ctx context.Context, db *sqlx.DB) error {
	var existing int
	if err := db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM categories`); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if existing > 0 {
		return nil
	}
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, c := range DefaultCategories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categories(name, category_type) VALUES (?, ?)`, c.Name, c.Type); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
