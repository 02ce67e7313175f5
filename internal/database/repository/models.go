package repository

import "github.com/shopspring/decimal"

func init() {
	// Amounts go over the wire as JSON numbers, matching the desktop client.
	decimal.MarshalJSONWithoutQuotes = true
}

// Account represents an account row.
type Account struct {
	ID          int64  `db:"account_id" json:"account_id"`
	Name        string `db:"name" json:"name"`
	AccountType string `db:"account_type" json:"account_type"`
	Currency    string `db:"currency" json:"currency"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}

// Category represents a category row.
type Category struct {
	ID           int64  `db:"category_id" json:"category_id"`
	Name         string `db:"name" json:"name"`
	CategoryType string `db:"category_type" json:"category_type"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

// Tag represents a tag row.
type Tag struct {
	ID        int64  `db:"tag_id" json:"tag_id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"created_at,omitempty"`
}

// DataLog is the audit row written once per committed import batch.
type DataLog struct {
	ID            int64  `db:"log_id" json:"log_id"`
	DataCollector string `db:"data_collector" json:"data_collector"`
	UpdateDate    string `db:"update_date" json:"update_date"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

// Transaction represents a transaction row. LogID is nil for manual entries.
type Transaction struct {
	ID              int64           `db:"transaction_id" json:"transaction_id"`
	AccountID       int64           `db:"account_id" json:"account_id"`
	CategoryID      int64           `db:"category_id" json:"category_id"`
	LogID           *int64          `db:"log_id" json:"log_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	ItemName        string          `db:"item_name" json:"item_name"`
	Description     string          `db:"description" json:"description"`
	TransactionDate string          `db:"transaction_date" json:"transaction_date"`
	Memo            *string         `db:"memo" json:"memo"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
}

// TransactionView is a transaction joined with its account, category and tags.
type TransactionView struct {
	Transaction
	AccountName  string `db:"account_name" json:"account_name"`
	CategoryName string `db:"category_name" json:"category_name"`
	Tags         []Tag  `db:"-" json:"tags"`
}
