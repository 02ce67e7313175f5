package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/skzy2018/ai-kakeibo-app/internal/database"
	"github.com/skzy2018/ai-kakeibo-app/internal/database/repository"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/validation"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type AccountInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	AccountType string `json:"account_type" validate:"required,max=50"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

type CategoryInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	CategoryType string `json:"category_type" validate:"required,max=50"`
}

type TagInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type TransactionInput struct {
	AccountID       int64           `json:"account_id" validate:"gt=0"`
	CategoryID      int64           `json:"category_id" validate:"gt=0"`
	Amount          decimal.Decimal `json:"amount"`
	ItemName        string          `json:"item_name" validate:"max=500"`
	Description     string          `json:"description" validate:"max=2000"`
	TransactionDate string          `json:"transaction_date" validate:"required,max=32"`
	Memo            *string         `json:"memo"`
	Tags            []int64         `json:"tags" validate:"omitempty,dive,gt=0"`
}

// LedgerService exposes direct CRUD over the ledger tables.
type LedgerService struct {
	DB  *sqlx.DB
	Log zerolog.Logger
}

func validate(in interface{}) error {
	if err := validation.Validator().Struct(in); err != nil {
		return appErrors.ParseValidationErrors(err)
	}
	return nil
}

// storeError maps constraint failures to DataIntegrity and the rest to Internal.
func storeError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return appErrors.ErrDataIntegrity.
			WithMessage(fmt.Sprintf("%s: %s", op, sqliteErr.Error())).
			WithError(err)
	}
	return appErrors.ErrInternal.WithError(fmt.Errorf("%s: %w", op, err))
}

func (s *LedgerService) AddAccount(ctx context.Context, in AccountInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AccountType = strings.TrimSpace(in.AccountType)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if err := validate(in); err != nil {
		return 0, err
	}
	id, err := repository.NewAccountRepo(s.DB).Insert(ctx, repository.Account{
		Name:        in.Name,
		AccountType: in.AccountType,
		Currency:    in.Currency,
	})
	if err != nil {
		return 0, storeError("add account", err)
	}
	s.Log.Info().Int64("account_id", id).Str("name", in.Name).Msg("account added")
	return id, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]repository.Account, error) {
	out, err := repository.NewAccountRepo(s.DB).List(ctx)
	if err != nil {
		return nil, storeError("list accounts", err)
	}
	return out, nil
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	n, err := repository.NewAccountRepo(s.DB).Delete(ctx, id)
	return deleteResult("account", id, n, err)
}

func (s *LedgerService) AddCategory(ctx context.Context, in CategoryInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CategoryType = strings.TrimSpace(in.CategoryType)
	if err := validate(in); err != nil {
		return 0, err
	}
	id, err := repository.NewCategoryRepo(s.DB).Insert(ctx, repository.Category{Name: in.Name, CategoryType: in.CategoryType})
	if err != nil {
		return 0, storeError("add category", err)
	}
	return id, nil
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]repository.Category, error) {
	out, err := repository.NewCategoryRepo(s.DB).List(ctx)
	if err != nil {
		return nil, storeError("list categories", err)
	}
	return out, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	n, err := repository.NewCategoryRepo(s.DB).Delete(ctx, id)
	return deleteResult("category", id, n, err)
}

func (s *LedgerService) AddTag(ctx context.Context, in TagInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return 0, err
	}
	id, err := repository.NewTagRepo(s.DB).Insert(ctx, in.Name)
	if err != nil {
		return 0, storeError("add tag", err)
	}
	return id, nil
}

func (s *LedgerService) ListTags(ctx context.Context) ([]repository.Tag, error) {
	out, err := repository.NewTagRepo(s.DB).List(ctx)
	if err != nil {
		return nil, storeError("list tags", err)
	}
	return out, nil
}

func (s *LedgerService) DeleteTag(ctx context.Context, id int64) error {
	n, err := repository.NewTagRepo(s.DB).Delete(ctx, id)
	return deleteResult("tag", id, n, err)
}

// ListTransactions pages through transactions newest first. A non-positive
// limit means the default; offsets below zero are clamped.
func (s *LedgerService) ListTransactions(ctx context.Context, limit, offset int) ([]repository.TransactionView, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	out, err := repository.NewTransactionRepo(s.DB).List(ctx, limit, offset)
	if err != nil {
		return nil, storeError("list transactions", err)
	}
	return out, nil
}

// AddTransaction inserts a manual transaction and its tag links atomically.
func (s *LedgerService) AddTransaction(ctx context.Context, in TransactionInput) (int64, error) {
	in.TransactionDate = strings.TrimSpace(in.TransactionDate)
	if err := validate(in); err != nil {
		return 0, err
	}
	if in.Memo != nil && strings.TrimSpace(*in.Memo) == "" {
		in.Memo = nil
	}
	var id int64
	err := database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		txs := repository.NewTransactionRepo(tx)
		var err error
		id, err = txs.Insert(ctx, repository.Transaction{
			AccountID:       in.AccountID,
			CategoryID:      in.CategoryID,
			Amount:          in.Amount,
			ItemName:        in.ItemName,
			Description:     in.Description,
			TransactionDate: in.TransactionDate,
			Memo:            in.Memo,
		})
		if err != nil {
			return err
		}
		for _, tagID := range in.Tags {
			if err := txs.AttachTag(ctx, id, tagID); err != nil {
				return fmt.Errorf("tag %d: %w", tagID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError("add transaction", err)
	}
	s.Log.Info().Int64("transaction_id", id).Int("tags", len(in.Tags)).Msg("transaction added")
	return id, nil
}

func deleteResult(resource string, id, affected int64, err error) error {
	if err != nil {
		return storeError("delete "+resource, err)
	}
	if affected == 0 {
		return appErrors.NewNotFoundError(resource, strconv.FormatInt(id, 10))
	}
	return nil
}
