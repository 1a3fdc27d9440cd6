package folders

import "github.com/starford/vaultfold/internal/models"

// Metadata keys. Values are plain JSON types so transports can forward the
// map as is.
const (
	MetaOperationID        = "operation_id"
	MetaCreated            = "created"
	MetaReferencesUpdated  = "references_updated"
	MetaDocumentsUpdated   = "documents_updated"
	MetaDocumentsScanned   = "documents_scanned"
	MetaScanTruncated      = "scan_truncated"
	MetaUpdatedDocuments   = "updated_documents"
	MetaItemCount          = "item_count"
	MetaAffectedNotes      = "affected_notes"
	MetaAffectedNotesCount = "affected_notes_count"
	MetaFolders            = "folders"
	MetaTotalMatched       = "total_matched"
	MetaReturned           = "returned"
	MetaHasMore            = "has_more"
	MetaOffset             = "offset"
	MetaPageSize           = "page_size"
	MetaNextOffset         = "next_offset"
	MetaMaxDepth           = "max_depth"
	MetaTruncated          = "truncated"
	MetaTruncatedBy        = "truncated_by"
)

// affectedNotesShown is how many referencing documents a delete lists by
// name; the full count is always reported.
const affectedNotesShown = 10

// Result is the outcome of a successful (or interrupted) operation. Typed
// failures are returned as errors instead.
type Result struct {
	Success    bool             `json:"success"`
	Operation  Kind             `json:"operation"`
	Path       string           `json:"path"`
	NewPath    string           `json:"new_path,omitempty"`
	Message    string           `json:"message"`
	DryRun     bool             `json:"dry_run"`
	Incomplete bool             `json:"incomplete,omitempty"`
	Metadata   map[string]any   `json:"metadata"`
	Warnings   []models.Warning `json:"warnings"`
}

func newResult(kind Kind, path string, dryRun bool) *Result {
	return &Result{
		Operation: kind,
		Path:      path,
		DryRun:    dryRun,
		Metadata:  make(map[string]any),
		Warnings:  []models.Warning{},
	}
}

// HasWarnings reports whether the operation succeeded with caveats.
func (r *Result) HasWarnings() bool { return len(r.Warnings) > 0 }

func (r *Result) warn(w ...models.Warning) {
	r.Warnings = append(r.Warnings, w...)
}
