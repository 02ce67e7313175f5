// Package sample writes sample statement CSVs in the import layout.
package sample

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Header is the first record of every generated statement.
var Header = []string{
	"date", "account_name", "category_type", "category_name", "amount",
	"item_name", "tags", "description", "memo",
}

// Row is one statement line. Tags are rendered as "[a|b]".
type Row struct {
	Date         string
	AccountName  string
	CategoryType string
	CategoryName string
	Amount       string
	ItemName     string
	Tags         []string
	Description  string
	Memo         string
}

// Record renders the row as CSV fields.
func (r Row) Record() []string {
	tags := ""
	if len(r.Tags) > 0 {
		tags = "[" + strings.Join(r.Tags, "|") + "]"
	}
	return []string{
		r.Date, r.AccountName, r.CategoryType, r.CategoryName, r.Amount,
		r.ItemName, tags, r.Description, r.Memo,
	}
}

// FileName builds the "<collector>_<date>.csv" import name.
func FileName(collector, updateDate string) string {
	return collector + "_" + updateDate + ".csv"
}

// WriteStatement writes a header plus records to dir and returns the file name.
func WriteStatement(dir, collector, updateDate string, records [][]string) (string, error) {
	name := FileName(collector, updateDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// Records converts rows for WriteStatement.
func Records(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

type sampleItem struct {
	account  string
	category string
	kind     string
	item     string
	tags     []string
	min, max int
}

var sampleItems = []sampleItem{
	{"現金", "食費", "expense", "スーパー", []string{"日常"}, 500, 6000},
	{"現金", "食費", "expense", "コンビニ", nil, 100, 1500},
	{"楽天カード", "日用品", "expense", "ドラッグストア", []string{"日常", "消耗品"}, 300, 4000},
	{"楽天カード", "通信費", "expense", "携帯電話", []string{"固定費"}, 2000, 9000},
	{"楽天カード", "娯楽", "expense", "映画", []string{"趣味"}, 1200, 3000},
	{"三菱UFJ銀行", "住居", "expense", "家賃", []string{"固定費"}, 60000, 90000},
	{"三菱UFJ銀行", "水道光熱費", "expense", "電気代", []string{"固定費"}, 3000, 12000},
	{"三菱UFJ銀行", "給与", "income", "給与振込", nil, 200000, 400000},
}

// Generate returns n deterministic rows for seed, dated backwards from end.
// Expenses are negative, income positive.
func Generate(n int, seed int64, end time.Time) []Row {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		it := sampleItems[rng.Intn(len(sampleItems))]
		amount := it.min + rng.Intn(it.max-it.min+1)
		if it.kind == "expense" {
			amount = -amount
		}
		r := Row{
			Date:         end.AddDate(0, 0, -rng.Intn(28)).Format("2006-01-02"),
			AccountName:  it.account,
			CategoryType: it.kind,
			CategoryName: it.category,
			Amount:       fmt.Sprintf("%d", amount),
			ItemName:     it.item,
			Tags:         append([]string(nil), it.tags...),
		}
		if rng.Intn(5) == 0 {
			r.Memo = "要確認"
		}
		rows = append(rows, r)
	}
	return rows
}
