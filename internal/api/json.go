package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/vaultfold/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind,omitempty" example:"conflict"`
	Hint  string `json:"hint,omitempty" example:"choose a different name"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps an error kind onto an HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindSecurity:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a typed failure. Internal errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		slog.Error("folder operation failed", slog.String("error", err.Error()))
		writeJSON(w, status, errResponse{Error: "internal error", Kind: kind.String()})
		return
	}
	writeJSON(w, status, errResponse{Error: err.Error(), Kind: kind.String(), Hint: apperr.HintOf(err)})
}
