package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/skzy2018/ai-kakeibo-app/internal/database"
	"github.com/skzy2018/ai-kakeibo-app/internal/database/repository"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
)

// minStatementColumns is date, account_name, category_type, category_name, amount.
const minStatementColumns = 5

// ImportService loads bank/card statement exports from the inbound directory.
//
// Statement columns: date, account_name, category_type, category_name, amount,
// item_name, tags, description, memo. The first record is a header.
// The database commit and the archive move are separate steps: a failed move
// after commit leaves the data persisted and the file in the inbound directory.
type ImportService struct {
	DB         *sqlx.DB
	InboundDir string
	ArchiveDir string
	Log        zerolog.Logger
}

type ImportResult struct {
	TransactionsInserted int      `json:"transactions_inserted"`
	TagsInserted         int      `json:"tags_inserted"`
	RowsSkipped          int      `json:"rows_skipped"`
	LogID                int64    `json:"log_id"`
	DataCollector        string   `json:"data_collector"`
	UpdateDate           string   `json:"update_date"`
	Archived             bool     `json:"archived"`
	Warnings             []string `json:"warnings,omitempty"`
}

// CSVFile describes a statement waiting in the inbound directory.
type CSVFile struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type statementRow struct {
	Date         string
	AccountName  string
	CategoryType string
	CategoryName string
	Amount       decimal.Decimal
	ItemName     string
	Tags         []string
	Description  string
	Memo         *string
}

// ParseImportFilename splits "<collector>_<date>.csv" at the first underscore.
func ParseImportFilename(filename string) (collector, updateDate string, err error) {
	if filename == "" || filename == "." || filename == ".." ||
		filepath.Base(filename) != filename || strings.ContainsAny(filename, `/\`) {
		return "", "", appErrors.NewValidationError(fmt.Sprintf("invalid file name %q", filename))
	}
	ext := filepath.Ext(filename)
	if !strings.EqualFold(ext, ".csv") {
		return "", "", appErrors.NewValidationError(fmt.Sprintf("file %q is not a .csv file", filename))
	}
	stem := strings.TrimSuffix(filename, ext)
	collector, updateDate, found := strings.Cut(stem, "_")
	if !found {
		return "", "", appErrors.NewValidationError(fmt.Sprintf("file name %q must look like <collector>_<date>.csv", filename))
	}
	if collector == "" || updateDate == "" {
		return "", "", appErrors.NewValidationError(fmt.Sprintf("file name %q has an empty collector or date", filename))
	}
	return collector, updateDate, nil
}

// ParseTags splits a "[a|b|c]" tag cell. Brackets are removed only when both
// are present; empty tokens are dropped and duplicates are kept.
func ParseTags(raw string) []string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	var out []string
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return decimal.NewFromFloat(f), nil
}

func field(rec []string, idx int) string {
	if idx < len(rec) {
		return strings.TrimSpace(rec[idx])
	}
	return ""
}

// parseRow returns ok=false for records too short to be transactions.
func parseRow(rec []string) (statementRow, bool, error) {
	if len(rec) < minStatementColumns {
		return statementRow{}, false, nil
	}
	amount, err := parseAmount(rec[4])
	if err != nil {
		return statementRow{}, false, err
	}
	row := statementRow{
		Date:         field(rec, 0),
		AccountName:  field(rec, 1),
		CategoryType: field(rec, 2),
		CategoryName: field(rec, 3),
		Amount:       amount,
		ItemName:     field(rec, 5),
		Tags:         ParseTags(field(rec, 6)),
		Description:  field(rec, 7),
	}
	if memo := field(rec, 8); memo != "" {
		row.Memo = &memo
	}
	return row, true, nil
}

// ImportFile loads one statement in a single transaction and archives it.
func (s *ImportService) ImportFile(ctx context.Context, filename string) (ImportResult, error) {
	collector, updateDate, err := ParseImportFilename(filename)
	if err != nil {
		return ImportResult{}, err
	}
	src := filepath.Join(s.InboundDir, filename)
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return ImportResult{}, appErrors.NewNotFoundError("csv file", filename)
	}
	if err != nil {
		return ImportResult{}, appErrors.ErrInternal.WithError(err)
	}
	if info.IsDir() {
		return ImportResult{}, appErrors.NewValidationError(fmt.Sprintf("%q is a directory", filename))
	}

	log := s.Log.With().Str("file", filename).Str("collector", collector).Str("update_date", updateDate).Logger()
	res := ImportResult{DataCollector: collector, UpdateDate: updateDate}

	var created CreatedKeys
	err = database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		logID, err := repository.NewDataLogRepo(tx).Insert(ctx, collector, updateDate)
		if err != nil {
			return fmt.Errorf("insert data log: %w", err)
		}
		res.LogID = logID

		resolver := NewResolver(tx)
		if err := s.loadRows(ctx, tx, src, logID, resolver, &res); err != nil {
			return err
		}
		created = resolver.Created()
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("import rolled back")
		return ImportResult{}, appErrors.ErrDataIntegrity.
			WithMessage("import rolled back: " + err.Error()).
			WithError(err).
			WithDetails(map[string]interface{}{"file": filename})
	}

	log.Info().
		Int64("log_id", res.LogID).
		Int("transactions", res.TransactionsInserted).
		Int("tags", res.TagsInserted).
		Int("skipped", res.RowsSkipped).
		Msg("import committed")

	res.Warnings = s.nearMatchWarnings(ctx, created)

	dst := filepath.Join(s.ArchiveDir, filename)
	if err := archiveFile(src, dst); err != nil {
		log.Error().Err(err).Str("archive", dst).Msg("archive failed after commit")
		return res, appErrors.ErrArchive.
			WithError(err).
			WithDetails(map[string]interface{}{"file": filename, "log_id": res.LogID})
	}
	res.Archived = true
	return res, nil
}

func (s *ImportService) loadRows(ctx context.Context, tx *sqlx.Tx, path string, logID int64, resolver *Resolver, res *ImportResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	txRepo := repository.NewTransactionRepo(tx)
	csvr := csv.NewReader(bufio.NewReader(f))
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true

	header := true
	for {
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := csvr.FieldPos(0)

		row, ok, err := parseRow(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			res.RowsSkipped++
			continue
		}

		accountID, err := resolver.Account(ctx, row.AccountName)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		categoryID, err := resolver.Category(ctx, row.CategoryName, row.CategoryType)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		txID, err := txRepo.Insert(ctx, repository.Transaction{
			AccountID:       accountID,
			CategoryID:      categoryID,
			LogID:           &logID,
			Amount:          row.Amount,
			ItemName:        row.ItemName,
			Description:     row.Description,
			TransactionDate: row.Date,
			Memo:            row.Memo,
		})
		if err != nil {
			return fmt.Errorf("line %d insert transaction: %w", line, err)
		}
		res.TransactionsInserted++

		for _, name := range row.Tags {
			tagID, err := resolver.Tag(ctx, name)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			if err := txRepo.AttachTag(ctx, txID, tagID); err != nil {
				return fmt.Errorf("line %d attach tag %q: %w", line, name, err)
			}
			res.TagsInserted++
		}
	}
	return nil
}

// ListCSVFiles lists *.csv statements in the inbound directory by name.
func (s *ImportService) ListCSVFiles() ([]CSVFile, error) {
	if err := os.MkdirAll(s.InboundDir, 0o755); err != nil {
		return nil, appErrors.ErrInternal.WithError(fmt.Errorf("create inbound dir: %w", err))
	}
	entries, err := os.ReadDir(s.InboundDir)
	if err != nil {
		return nil, appErrors.ErrInternal.WithError(fmt.Errorf("read inbound dir: %w", err))
	}
	files := []CSVFile{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, CSVFile{Name: e.Name(), Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func archiveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to copy and remove.
	if err := copyFile(src, dst); err != nil {
		return errors.Join(renameErr, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
