package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// AccountRepo handles accounts. It runs against either the database
// handle or an open transaction.
type AccountRepo struct {
	db sqlx.ExtContext
}

func NewAccountRepo(db sqlx.ExtContext) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Insert(ctx context.Context, a Account) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts(name, account_type, currency) VALUES (?, ?, ?)`,
		a.Name, a.AccountType, a.Currency)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// IDByName looks up an account by exact name.
func (r *AccountRepo) IDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, `SELECT account_id FROM accounts WHERE name = ? ORDER BY account_id LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *AccountRepo) Get(ctx context.Context, id int64) (*Account, error) {
	var a Account
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT account_id, name, account_type, currency, created_at FROM accounts WHERE account_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	out := []Account{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT account_id, name, account_type, currency, created_at FROM accounts ORDER BY name`)
	return out, err
}

// Delete removes an account and reports how many rows went away.
func (r *AccountRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *AccountRepo) Names(ctx context.Context) ([]string, error) {
	var out []string
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT name FROM accounts ORDER BY name`)
	return out, err
}
