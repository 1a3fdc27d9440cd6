// Package models defines the value types shared across vaultfold packages.
package models

import "time"

// Document is a handle to a Markdown file in the vault. Content is read on
// demand through the document store.
type Document struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Warning is a non-fatal problem attached to an otherwise successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Warning codes.
const (
	WarnScanLimit         = "scan_limit_reached"
	WarnDocumentFailed    = "document_update_failed"
	WarnDocumentChanged   = "document_changed"
	WarnDanglingReference = "dangling_reference"
	WarnStatsFailed       = "stats_failed"
	WarnDepthClamped      = "depth_clamped"
	WarnListTruncated     = "listing_truncated"
	WarnInterrupted       = "interrupted"
)
