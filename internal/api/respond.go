package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/skzy2018/ai-kakeibo-app/internal/errors"
	"github.com/skzy2018/ai-kakeibo-app/internal/logger"
)

const maxBodyBytes = 1 << 20

type envelope map[string]interface{}

type errorResponse struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// writeOK writes {"success": true, ...fields}.
func writeOK(w http.ResponseWriter, fields envelope) {
	if fields == nil {
		fields = envelope{}
	}
	fields["success"] = true
	writeJSON(w, http.StatusOK, fields)
}

// writeError maps err onto the AppError taxonomy. Internal causes are logged
// but not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := appErrors.FromError(err)
	log := logger.FromContext(r.Context())
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", appErr.Code).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", appErr.Code).Msg("request rejected")
	}

	resp := errorResponse{Code: appErr.Code, Error: appErr.Message}
	if len(appErr.Details) > 0 {
		resp.Details = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, resp)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return appErrors.ErrBadRequest.WithMessage("invalid request body: " + err.Error()).WithError(err)
	}
	return nil
}

func idParam(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.NewValidationError("invalid " + key + ": " + strconv.Quote(raw))
	}
	return id, nil
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.NewValidationError("invalid " + key + ": " + strconv.Quote(raw))
	}
	return n, nil
}
