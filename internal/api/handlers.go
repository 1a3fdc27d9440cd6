package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/folders"
)

const maxBodyBytes = 1 << 20

// Executor runs folder operations.
type Executor interface {
	Execute(ctx context.Context, req folders.Request) (*folders.Result, error)
}

// Handler holds API route handlers.
type Handler struct {
	exec Executor
}

// NewHandler creates a new Handler.
func NewHandler(exec Executor) *Handler {
	return &Handler{exec: exec}
}

// folderPath extracts the folder path from the URL (everything after /api/folders/).
// Supports encoded slashes from OpenAPI clients (e.g. projects%2Falpha).
func folderPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Execute handles POST /api/folders.
//
//	@Summary		Run a folder operation (create, rename, move, delete, list)
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OperationRequest	true	"Operation parameters"
//	@Success		200		{object}	OperationResult
//	@Success		201		{object}	OperationResult
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var params folders.Params
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		msg := "invalid JSON body"
		if !errors.Is(err, io.EOF) {
			msg += ": " + err.Error()
		}
		writeJSON(w, http.StatusBadRequest, errResponse{Error: msg, Kind: apperr.KindValidation.String()})
		return
	}
	req, err := params.Request()
	if err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, req)
}

// ListFolders handles GET /api/folders and GET /api/folders/*.
//
//	@Summary		List folders below a path
//	@Tags			folders
//	@Produce		json
//	@Param			path		path		string	false	"Folder path (vault root when omitted)"
//	@Param			recursive	query		bool	false	"Descend into subfolders"
//	@Param			max_depth	query		int		false	"Levels to descend when recursive"
//	@Param			stats		query		bool	false	"Include note counts and sizes (default true)"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			limit		query		int		false	"Page size"
//	@Success		200			{object}	OperationResult
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{path} [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := folderPath(r)

	op := folders.List{IncludeStats: true}
	var err error
	if op.Recursive, err = queryBool(q, "recursive", false); err != nil {
		writeError(w, err)
		return
	}
	if op.IncludeStats, err = queryBool(q, "stats", true); err != nil {
		writeError(w, err)
		return
	}
	if op.MaxDepth, err = queryInt(q, "max_depth"); err != nil {
		writeError(w, err)
		return
	}
	if op.Offset, err = queryInt(q, "offset"); err != nil {
		writeError(w, err)
		return
	}
	if op.PageSize, err = queryInt(q, "limit"); err != nil {
		writeError(w, err)
		return
	}
	h.run(w, r, folders.Request{Target: target, Op: op})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, req folders.Request) {
	res, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created, _ := res.Metadata[folders.MetaCreated].(bool); created && !res.DryRun {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(string(folders.KindList), "", fmt.Sprintf("query parameter %q must be an integer", key), "")
	}
	return n, nil
}

func queryBool(q url.Values, key string, def bool) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperr.Validation(string(folders.KindList), "", fmt.Sprintf("query parameter %q must be true or false", key), "")
	}
	return b, nil
}
