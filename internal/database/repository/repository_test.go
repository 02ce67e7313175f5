package repository_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/skzy2018/ai-kakeibo-app/internal/database"
	"github.com/skzy2018/ai-kakeibo-app/internal/database/repository"
)

func setupRepoTest(t *testing.T) (*sqlx.DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, ctx
}

func TestAccountLookupIsExact(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	accounts := repository.NewAccountRepo(db)

	id, err := accounts.Insert(ctx, repository.Account{Name: "Visa", AccountType: "credit", Currency: "JPY"})
	require.NoError(t, err)
	require.Positive(t, id)

	got, ok, err := accounts.IDByName(ctx, "Visa")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok, err = accounts.IDByName(ctx, "visa")
	require.NoError(t, err)
	require.False(t, ok, "lookup must be case sensitive")

	acct, err := accounts.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "credit", acct.AccountType)

	missing, err := accounts.Get(ctx, id+100)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCategoryLookupUsesNameAndType(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	cats := repository.NewCategoryRepo(db)

	expense, err := cats.Insert(ctx, repository.Category{Name: "Bonus", CategoryType: "expense"})
	require.NoError(t, err)
	income, err := cats.Insert(ctx, repository.Category{Name: "Bonus", CategoryType: "income"})
	require.NoError(t, err)
	require.NotEqual(t, expense, income)

	got, ok, err := cats.IDByNameType(ctx, "Bonus", "income")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, income, got)

	names, err := cats.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Bonus"}, names)

	_, err = cats.Insert(ctx, repository.Category{Name: "Salary", CategoryType: "income"})
	require.NoError(t, err)
	names, err = cats.NamesByType(ctx, "expense")
	require.NoError(t, err)
	require.Equal(t, []string{"Bonus"}, names)
	names, err = cats.NamesByType(ctx, "income")
	require.NoError(t, err)
	require.Equal(t, []string{"Bonus", "Salary"}, names)
}

func TestTransactionsWithDuplicateTags(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)

	acctID, err := repository.NewAccountRepo(db).Insert(ctx, repository.Account{Name: "Cash", AccountType: "cash", Currency: "JPY"})
	require.NoError(t, err)
	catID, err := repository.NewCategoryRepo(db).Insert(ctx, repository.Category{Name: "Food", CategoryType: "expense"})
	require.NoError(t, err)
	tagID, err := repository.NewTagRepo(db).Insert(ctx, "groceries")
	require.NoError(t, err)
	logID, err := repository.NewDataLogRepo(db).Insert(ctx, "visa", "2024-05")
	require.NoError(t, err)

	txs := repository.NewTransactionRepo(db)
	memo := "weekly shop"
	txID, err := txs.Insert(ctx, repository.Transaction{
		AccountID:       acctID,
		CategoryID:      catID,
		LogID:           &logID,
		Amount:          decimal.RequireFromString("-1234.5"),
		ItemName:        "supermarket",
		TransactionDate: "2024-05-01",
		Memo:            &memo,
	})
	require.NoError(t, err)
	require.NoError(t, txs.AttachTag(ctx, txID, tagID))
	require.NoError(t, txs.AttachTag(ctx, txID, tagID))

	list, err := txs.List(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	require.Equal(t, "Cash", got.AccountName)
	require.Equal(t, "Food", got.CategoryName)
	require.True(t, decimal.RequireFromString("-1234.5").Equal(got.Amount))
	require.Equal(t, logID, *got.LogID)
	require.Equal(t, "weekly shop", *got.Memo)
	require.Len(t, got.Tags, 2)
	require.Equal(t, got.Tags[0].ID, got.Tags[1].ID)

	n, err := txs.CountByLog(ctx, logID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"amount":-1234.5`)

	// Deleting the tag cascades to its join rows.
	removed, err := repository.NewTagRepo(db).Delete(ctx, tagID)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	tags, err := txs.TagsFor(ctx, txID)
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestManualTransactionHasNoLog(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)

	acctID, err := repository.NewAccountRepo(db).Insert(ctx, repository.Account{Name: "Cash", AccountType: "cash", Currency: "JPY"})
	require.NoError(t, err)
	catID, err := repository.NewCategoryRepo(db).Insert(ctx, repository.Category{Name: "Food", CategoryType: "expense"})
	require.NoError(t, err)

	txs := repository.NewTransactionRepo(db)
	id, err := txs.Insert(ctx, repository.Transaction{AccountID: acctID, CategoryID: catID, Amount: decimal.NewFromInt(500), TransactionDate: "2024-06-01"})
	require.NoError(t, err)

	got, err := txs.Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got.LogID)
	require.Nil(t, got.Memo)
	require.Empty(t, got.Tags)

	// The account is referenced, so deleting it violates the foreign key.
	_, err = repository.NewAccountRepo(db).Delete(ctx, acctID)
	require.Error(t, err)
}

func TestDataLogs(t *testing.T) {
	t.Parallel()
	db, ctx := setupRepoTest(t)
	logs := repository.NewDataLogRepo(db)

	id, err := logs.Insert(ctx, "mufg", "20240501")
	require.NoError(t, err)
	l, err := logs.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "mufg", l.DataCollector)
	require.Equal(t, "20240501", l.UpdateDate)

	all, err := logs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
