package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skzy2018/ai-kakeibo-app/internal/components"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/logger"
	"github.com/skzy2018/ai-kakeibo-app/internal/service"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok", "version": h.Version})
}

func (h *Handler) handleInitDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Maintenance.Init(r.Context(), h.SeedCategories); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"result": "database initialized"})
}

func (h *Handler) handleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	sql := r.URL.Query().Get("sql")
	if sql == "" {
		var req struct {
			SQL string `json:"sql"`
		}
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeError(w, r, err)
			return
		}
		sql = req.SQL
	}
	res, err := h.Runner.Execute(r.Context(), sql)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"columns": res.Columns, "data": res.Rows})
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Ledger.AddAccount(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"account_id": id})
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err == nil {
		err = h.Ledger.DeleteAccount(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"account_id": id})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Ledger.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Ledger.AddCategory(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"category_id": id})
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err == nil {
		err = h.Ledger.DeleteCategory(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"category_id": id})
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Ledger.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var in service.TagInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Ledger.AddTag(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"tag_id": id})
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err == nil {
		err = h.Ledger.DeleteTag(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"tag_id": id})
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", service.DefaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.Ledger.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var in service.TransactionInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.Ledger.AddTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"transaction_id": id})
}

func (h *Handler) handleListCSVFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.Imports.ListCSVFiles()
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	res, err := h.Imports.ImportFile(r.Context(), filename)
	if errors.Is(err, appErrors.ErrArchive) {
		// Data is committed; report the summary alongside the failure.
		if appErr, ok := appErrors.AsAppError(err); ok {
			err = appErr.WithDetails(map[string]interface{}{"result": res})
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().
		Str("file", filename).
		Int("transactions", res.TransactionsInserted).
		Msg("statement imported")
	writeOK(w, envelope{"records_imported": res.TransactionsInserted, "result": res})
}

func (h *Handler) handleListComponents(w http.ResponseWriter, r *http.Request) {
	list, err := h.Components.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSaveComponent(w http.ResponseWriter, r *http.Request) {
	var c components.Component
	if err := decodeJSON(w, r, &c, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Components.Save(c); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"name": c.Name})
}

func (h *Handler) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	c, err := h.Components.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Components.Delete(name); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"name": name})
}

func (h *Handler) handleRunComponent(w http.ResponseWriter, r *http.Request) {
	vars := map[string]string{}
	if err := decodeJSON(w, r, &vars, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Runner.Run(r.Context(), chi.URLParam(r, "name"), vars)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, envelope{"columns": res.Columns, "data": res.Rows})
}
