package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const transactionViewColumns = `
	t.transaction_id, t.account_id, t.category_id, t.log_id, t.amount, t.item_name,
	t.description, t.transaction_date, t.memo, t.created_at,
	a.name AS account_name, c.name AS category_name`

// TransactionRepo handles transactions and their tag associations.
type TransactionRepo struct {
	db sqlx.ExtContext
}

func NewTransactionRepo(db sqlx.ExtContext) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 account_id, category_id, log_id, amount, item_name, description, transaction_date, memo)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?);
	`,
		t.AccountID, t.CategoryID, t.LogID, t.Amount, t.ItemName, t.Description, t.TransactionDate, t.Memo)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AttachTag inserts one join row. Repeated pairs are kept.
func (r *TransactionRepo) AttachTag(ctx context.Context, transactionID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO transaction_tags(transaction_id, tag_id) VALUES(?, ?)`, transactionID, tagID)
	return err
}

// List returns transactions newest first with names and tags resolved.
func (r *TransactionRepo) List(ctx context.Context, limit, offset int) ([]TransactionView, error) {
	out := []TransactionView{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	SELECT `+transactionViewColumns+`
	FROM transactions t
	JOIN accounts a ON t.account_id = a.account_id
	JOIN categories c ON t.category_id = c.category_id
	ORDER BY t.transaction_date DESC, t.transaction_id DESC
	LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range out {
		tags, err := r.TagsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (*TransactionView, error) {
	var t TransactionView
	err := sqlx.GetContext(ctx, r.db, &t, `
	SELECT `+transactionViewColumns+`
	FROM transactions t
	JOIN accounts a ON t.account_id = a.account_id
	JOIN categories c ON t.category_id = c.category_id
	WHERE t.transaction_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tags, err := r.TagsFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return &t, nil
}

// TagsFor returns one entry per join row, so duplicated tags appear twice.
func (r *TransactionRepo) TagsFor(ctx context.Context, transactionID int64) ([]Tag, error) {
	tags := []Tag{}
	err := sqlx.SelectContext(ctx, r.db, &tags, `
	SELECT tg.tag_id, tg.name, tg.created_at
	FROM tags tg
	JOIN transaction_tags tt ON tt.tag_id = tg.tag_id
	WHERE tt.transaction_id = ?
	ORDER BY tg.name, tt.rowid`, transactionID)
	return tags, err
}

func (r *TransactionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM transactions`)
	return n, err
}

// CountByLog reports how many transactions a given import batch produced.
func (r *TransactionRepo) CountByLog(ctx context.Context, logID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM transactions WHERE log_id = ?`, logID)
	return n, err
}
