package components

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skzy2018/ai-kakeibo-app/internal/database"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
)

func setupRunnerTest(t *testing.T) (*Runner, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	tmpDir := t.TempDir()
	db, err := database.OpenAndMigrate(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `
	INSERT INTO accounts(name, account_type) VALUES ('Wallet', 'cash');
	INSERT INTO categories(name, category_type) VALUES ('Rent', 'expense'), ('Food', 'expense');
	INSERT INTO transactions(account_id, category_id, amount, item_name, transaction_date)
	VALUES (1, 1, -80000, 'May rent', '2024-05-01'),
	       (1, 2, -1200, 'lunch', '2024-05-02'),
	       (1, 2, -800, 'dinner', '2024-05-03');`)
	require.NoError(t, err)

	store := NewStore(filepath.Join(tmpDir, "components"), zerolog.Nop())
	return NewRunner(store, db, zerolog.Nop()), ctx
}

func TestSaveGetRoundTrip(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir(), zerolog.Nop())

	c := Component{
		Name:                 "rent_report",
		SQL:                  "SELECT * FROM transactions WHERE category_id=$cat",
		Description:          "rent <by> category & month",
		EnvironmentVariables: map[string]json.RawMessage{"cat": json.RawMessage(`"category id"`)},
	}
	require.NoError(t, store.Save(c))

	got, err := store.Get("rent_report")
	require.NoError(t, err)
	require.Equal(t, c, *got)

	raw, err := os.ReadFile(filepath.Join(store.Dir, "rent_report.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"description": "rent <by> category & month"`)
	require.Contains(t, string(raw), "\n  \"sql\"")
}

func TestSaveKeepsUnknownFieldsAndStructuredVariables(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir(), zerolog.Nop())

	posted := `{
		"name": "r",
		"sql": "SELECT\t1",
		"chart_type": "bar",
		"layout": {"width": 640, "height": 480},
		"environment_variables": {"cat": {"description": "category", "default": "3"}, "month": "YYYY-MM"}
	}`
	var c Component
	require.NoError(t, json.Unmarshal([]byte(posted), &c))
	require.Equal(t, "r", c.Name)
	require.Contains(t, c.Extra, "chart_type")
	require.NoError(t, store.Save(c))

	raw, err := os.ReadFile(filepath.Join(store.Dir, "r.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"name": "r",
		"sql": "SELECT  1",
		"chart_type": "bar",
		"layout": {"width": 640, "height": 480},
		"environment_variables": {"cat": {"description": "category", "default": "3"}, "month": "YYYY-MM"}
	}`, string(raw))

	got, err := store.Get("r")
	require.NoError(t, err)
	require.JSONEq(t, `{"description": "category", "default": "3"}`, string(got.EnvironmentVariables["cat"]))
	require.JSONEq(t, `"bar"`, string(got.Extra["chart_type"]))

	out, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(out))
}

func TestGetReadsFilesWithForeignKeys(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(
		`{"name":"legacy","sql":"SELECT 1","environment_variables":{"x":{"default":1}},"d3code":"","chart":{"type":"pie"}}`), 0o644))

	got, err := store.Get("legacy")
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", got.SQL)
	require.JSONEq(t, `{"type":"pie"}`, string(got.Extra["chart"]))

	list, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []Summary{{Name: "legacy"}}, list)
}

func TestSaveNormalisesTabsAndOverwrites(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir(), zerolog.Nop())

	require.NoError(t, store.Save(Component{Name: "q", SQL: "SELECT\t1", D3Code: "x\ty", Description: "first"}))
	require.NoError(t, store.Save(Component{Name: "q", SQL: "SELECT 2"}))

	got, err := store.Get("q")
	require.NoError(t, err)
	require.Equal(t, "SELECT 2", got.SQL)
	require.Empty(t, got.Description)
	require.Empty(t, got.D3Code)

	require.NoError(t, store.Save(Component{Name: "tabs", SQL: "SELECT\t1", D3Code: "x\ty"}))
	got, err = store.Get("tabs")
	require.NoError(t, err)
	require.Equal(t, "SELECT  1", got.SQL)
	require.Equal(t, "x  y", got.D3Code)
}

func TestSaveRejectsUnsafeNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	for _, name := range []string{"bad name!", "", "../escape", "a/b", "dot.name"} {
		err := store.Save(Component{Name: name, SQL: "SELECT 1"})
		require.True(t, errors.Is(err, appErrors.ErrValidation), "%q: %v", name, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = store.Get("bad name!")
	require.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestListSkipsCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	require.NoError(t, store.Save(Component{Name: "b_report", SQL: "SELECT 1", Description: "second"}))
	require.NoError(t, store.Save(Component{Name: "a_report", SQL: "SELECT 1"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nameless.json"), []byte(`{"sql":"SELECT 1","description":"no name"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	list, err := store.List()
	require.NoError(t, err)
	require.Equal(t, []Summary{
		{Name: "a_report"},
		{Name: "b_report", Description: "second"},
		{Name: "nameless", Description: "no name"},
	}, list)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	t.Parallel()
	store := NewStore(filepath.Join(t.TempDir(), "absent"), zerolog.Nop())
	list, err := store.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir(), zerolog.Nop())

	err := store.Delete("nope")
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, store.Save(Component{Name: "gone", SQL: "SELECT 1"}))
	require.NoError(t, store.Delete("gone"))
	_, err = store.Get("gone")
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSubstitute(t *testing.T) {
	t.Parallel()
	got := Substitute("SELECT $cat_id, $cat, $missing", map[string]string{"cat": "1", "cat_id": "2", "": "x"})
	require.Equal(t, "SELECT 2, 1, $missing", got)
}

func TestRunMatchesDirectQuery(t *testing.T) {
	t.Parallel()
	runner, ctx := setupRunnerTest(t)

	require.NoError(t, runner.Store.Save(Component{
		Name: "by_category",
		SQL:  "SELECT item_name, amount FROM transactions WHERE category_id = $cat ORDER BY transaction_id",
	}))

	got, err := runner.Run(ctx, "by_category", map[string]string{"cat": "2"})
	require.NoError(t, err)

	want, err := runner.Execute(ctx, "SELECT item_name, amount FROM transactions WHERE category_id = 2 ORDER BY transaction_id")
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.Equal(t, []string{"item_name", "amount"}, got.Columns)
	require.Len(t, got.Rows, 2)
	require.Equal(t, "lunch", got.Rows[0]["item_name"])
	require.EqualValues(t, -1200, got.Rows[0]["amount"])
}

func TestRunFailures(t *testing.T) {
	t.Parallel()
	runner, ctx := setupRunnerTest(t)

	_, err := runner.Run(ctx, "absent", nil)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, runner.Store.Save(Component{Name: "blank", SQL: "  "}))
	_, err = runner.Run(ctx, "blank", nil)
	require.True(t, errors.Is(err, appErrors.ErrValidation))

	broken := Component{Name: "broken", SQL: "SELECT * FROM no_such_table"}
	require.NoError(t, runner.Store.Save(broken))
	_, err = runner.Run(ctx, "broken", nil)
	require.True(t, errors.Is(err, appErrors.ErrExecution))
	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, &broken, appErr.Details["component"])
	require.Contains(t, appErr.Message, "no_such_table")
}

func TestExecuteEmptyResultHasColumns(t *testing.T) {
	t.Parallel()
	runner, ctx := setupRunnerTest(t)

	res, err := runner.Execute(ctx, "SELECT name FROM accounts WHERE 1 = 0")
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, res.Columns)
	require.NotNil(t, res.Rows)
	require.Empty(t, res.Rows)

	_, err = runner.Execute(ctx, " ")
	require.True(t, errors.Is(err, appErrors.ErrValidation))
}
