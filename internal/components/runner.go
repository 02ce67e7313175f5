package components

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
)

// QueryResult is a tabular query result. Columns keep the select order.
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"data"`
}

// Runner executes stored components against the database.
type Runner struct {
	Store *Store
	DB    *sqlx.DB
	Log   zerolog.Logger
}

func NewRunner(store *Store, db *sqlx.DB, log zerolog.Logger) *Runner {
	return &Runner{Store: store, DB: db, Log: log}
}

// Substitute replaces each $key in sql with its value. Longer keys are
// applied first so $cat_id is not clobbered by $cat. Values are inserted
// verbatim; no quoting or escaping happens.
func Substitute(sql string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		sql = strings.ReplaceAll(sql, "$"+k, vars[k])
	}
	return sql
}

// Run loads the named component, fills in vars and executes it.
func (r *Runner) Run(ctx context.Context, name string, vars map[string]string) (*QueryResult, error) {
	c, err := r.Store.Get(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.SQL) == "" {
		return nil, appErrors.NewValidationError(fmt.Sprintf("component %q has no sql", name))
	}
	query := Substitute(c.SQL, vars)
	res, err := r.query(ctx, query)
	if err != nil {
		r.Log.Warn().Err(err).Str("component", name).Msg("component query failed")
		return nil, appErrors.ErrExecution.
			WithMessage(err.Error()).
			WithError(err).
			WithDetails(map[string]interface{}{"component": c, "sql": query})
	}
	r.Log.Debug().Str("component", name).Int("rows", len(res.Rows)).Msg("component run")
	return res, nil
}

// Execute runs ad-hoc SQL text.
func (r *Runner) Execute(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, appErrors.NewValidationError("sql is required")
	}
	res, err := r.query(ctx, query)
	if err != nil {
		return nil, appErrors.ErrExecution.
			WithMessage(err.Error()).
			WithError(err).
			WithDetails(map[string]interface{}{"sql": query})
	}
	return res, nil
}

func (r *Runner) query(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := r.DB.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &QueryResult{Columns: cols, Rows: []map[string]interface{}{}}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
