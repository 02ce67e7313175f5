package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/skzy2018/ai-kakeibo-app/internal/database/repository"
)

const (
	// DefaultImportAccountType is assigned to accounts first seen in a statement.
	DefaultImportAccountType = "imported"
	DefaultCurrency          = "JPY"
)

// CreatedKeys lists the natural keys a Resolver had to insert.
type CreatedKeys struct {
	Accounts   []string
	Categories []repository.Category
	Tags       []string
}

// Resolver maps natural keys to surrogate ids inside an open transaction,
// inserting rows that do not exist yet. It never commits; every call issues
// at most one read and one write, so rows created earlier in the same
// transaction are visible to later calls.
type Resolver struct {
	accounts   *repository.AccountRepo
	categories *repository.CategoryRepo
	tags       *repository.TagRepo

	created CreatedKeys
}

func NewResolver(tx sqlx.ExtContext) *Resolver {
	return &Resolver{
		accounts:   repository.NewAccountRepo(tx),
		categories: repository.NewCategoryRepo(tx),
		tags:       repository.NewTagRepo(tx),
	}
}

// Account resolves an account by exact name.
func (r *Resolver) Account(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	id, ok, err := r.accounts.IDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup account %q: %w", name, err)
	}
	if ok {
		return id, nil
	}
	id, err = r.accounts.Insert(ctx, repository.Account{
		Name:        name,
		AccountType: DefaultImportAccountType,
		Currency:    DefaultCurrency,
	})
	if err != nil {
		return 0, fmt.Errorf("insert account %q: %w", name, err)
	}
	r.created.Accounts = append(r.created.Accounts, name)
	return id, nil
}

// Category resolves a category by exact (name, type).
func (r *Resolver) Category(ctx context.Context, name, categoryType string) (int64, error) {
	name = strings.TrimSpace(name)
	categoryType = strings.TrimSpace(categoryType)
	id, ok, err := r.categories.IDByNameType(ctx, name, categoryType)
	if err != nil {
		return 0, fmt.Errorf("lookup category %q/%q: %w", categoryType, name, err)
	}
	if ok {
		return id, nil
	}
	id, err = r.categories.Insert(ctx, repository.Category{Name: name, CategoryType: categoryType})
	if err != nil {
		return 0, fmt.Errorf("insert category %q/%q: %w", categoryType, name, err)
	}
	r.created.Categories = append(r.created.Categories, repository.Category{Name: name, CategoryType: categoryType})
	return id, nil
}

// Tag resolves a tag by exact name.
func (r *Resolver) Tag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	id, ok, err := r.tags.IDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup tag %q: %w", name, err)
	}
	if ok {
		return id, nil
	}
	id, err = r.tags.Insert(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", name, err)
	}
	r.created.Tags = append(r.created.Tags, name)
	return id, nil
}

// Created returns the keys inserted so far.
func (r *Resolver) Created() CreatedKeys {
	return r.created
}
