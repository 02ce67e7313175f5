// Package api exposes the bookkeeping operations over HTTP for the desktop shell.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/skzy2018/ai-kakeibo-app/internal/components"
	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/service"
)

// Handler holds the services behind the routes.
type Handler struct {
	Ledger         *service.LedgerService
	Imports        *service.ImportService
	Maintenance    *service.MaintenanceService
	Components     *components.Store
	Runner         *components.Runner
	Log            zerolog.Logger
	AllowedOrigins []string
	SeedCategories bool
	Version        string
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(h.Log), AccessLog, Recovery, CORS(h.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, appErrors.ErrNotFound.WithMessage("no route for "+r.Method+" "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, appErrors.WrapError(nil, "METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed))
	})

	r.Get("/health", h.handleHealth)
	r.Post("/init_database", h.handleInitDatabase)
	r.Post("/execute_sql", h.handleExecuteSQL)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.handleListAccounts)
		r.Post("/", h.handleAddAccount)
		r.Delete("/{id}", h.handleDeleteAccount)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.handleListCategories)
		r.Post("/", h.handleAddCategory)
		r.Delete("/{id}", h.handleDeleteCategory)
	})
	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.handleListTags)
		r.Post("/", h.handleAddTag)
		r.Delete("/{id}", h.handleDeleteTag)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.handleListTransactions)
		r.Post("/", h.handleAddTransaction)
	})

	r.Get("/csv_files", h.handleListCSVFiles)
	r.Post("/csv_files/{filename}", h.handleImportCSV)

	r.Route("/sql_components", func(r chi.Router) {
		r.Get("/", h.handleListComponents)
		r.Post("/", h.handleSaveComponent)
		r.Get("/{name}", h.handleGetComponent)
		r.Delete("/{name}", h.handleDeleteComponent)
		r.Post("/{name}/run", h.handleRunComponent)
	})

	return r
}
