package folders

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultfold/internal/apperr"
)

// Kind names an operation.
type Kind string

const (
	KindCreate Kind = "create"
	KindRename Kind = "rename"
	KindMove   Kind = "move"
	KindDelete Kind = "delete"
	KindList   Kind = "list"
)

// Operation is implemented only by the five operation payloads in this
// package.
type Operation interface {
	Kind() Kind
	operation()
}

// Create makes a folder.
type Create struct {
	Parents bool
}

// Rename changes the last segment of a folder path.
type Rename struct {
	NewName          string
	UpdateReferences bool
}

// Move relocates a folder into the Destination folder, keeping its name.
type Move struct {
	Destination      string
	UpdateReferences bool
}

// Delete removes a folder. ConfirmPath must name the target.
type Delete struct {
	Force           bool
	ConfirmPath     string
	CheckReferences bool
}

// List enumerates folders below the target.
type List struct {
	Recursive    bool
	MaxDepth     int
	IncludeStats bool
	Offset       int
	PageSize     int
}

func (Create) Kind() Kind { return KindCreate }
func (Rename) Kind() Kind { return KindRename }
func (Move) Kind() Kind   { return KindMove }
func (Delete) Kind() Kind { return KindDelete }
func (List) Kind() Kind   { return KindList }

func (Create) operation() {}
func (Rename) operation() {}
func (Move) operation()   {}
func (Delete) operation() {}
func (List) operation()   {}

// Request is a single folder operation.
type Request struct {
	Target string
	DryRun bool
	Op     Operation
}

// Params is the wire form of a Request shared by the HTTP and MCP
// transports. Pointer fields distinguish "absent" from false.
type Params struct {
	Operation        string  `json:"operation"`
	Path             string  `json:"path"`
	NewName          string  `json:"new_name,omitempty"`
	Destination      *string `json:"destination,omitempty"`
	CreateParents    *bool   `json:"create_parents,omitempty"`
	Force            bool    `json:"force,omitempty"`
	ConfirmPath      string  `json:"confirm_path,omitempty"`
	CheckReferences  *bool   `json:"check_references,omitempty"`
	UpdateReferences *bool   `json:"update_references,omitempty"`
	Recursive        bool    `json:"recursive,omitempty"`
	MaxDepth         int     `json:"max_depth,omitempty"`
	IncludeStats     *bool   `json:"include_stats,omitempty"`
	Offset           int     `json:"offset,omitempty"`
	PageSize         int     `json:"page_size,omitempty"`
	DryRun           bool    `json:"dry_run,omitempty"`
}

// Validate checks field presence for the selected operation. Range checks
// that depend on configured limits happen in the engine.
func (p *Params) Validate() error {
	op := Kind(strings.ToLower(strings.TrimSpace(p.Operation)))
	mutating := op != KindList
	refOp := op == KindRename || op == KindMove
	return validation.ValidateStruct(p,
		validation.Field(&p.Operation, validation.Required,
			validation.In(string(KindCreate), string(KindRename), string(KindMove), string(KindDelete), string(KindList)).
				Error("must be one of create, rename, move, delete, list")),
		validation.Field(&p.Path, validation.When(mutating, validation.Required.Error("is required for "+string(op)))),
		validation.Field(&p.NewName, validation.When(op == KindRename, validation.Required.Error("is required for rename"))),
		validation.Field(&p.Destination, validation.When(op == KindMove, validation.NotNil.Error("is required for move"))),
		validation.Field(&p.ConfirmPath, validation.When(op == KindDelete,
			validation.Required.Error("is required for delete and must equal path"))),
		validation.Field(&p.UpdateReferences, validation.When(!refOp,
			validation.Nil.Error("only applies to rename and move"))),
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.MaxDepth, validation.Min(0)),
		validation.Field(&p.PageSize, validation.Min(0)),
	)
}

// Request converts validated params into a Request, applying defaults:
// create_parents, check_references, update_references and include_stats
// all default to true.
func (p *Params) Request() (Request, error) {
	op := Kind(strings.ToLower(strings.TrimSpace(p.Operation)))
	p.Operation = string(op)
	if err := p.Validate(); err != nil {
		var errs validation.Errors
		hint := "fix the listed parameters and retry"
		if errors.As(err, &errs) {
			if _, ok := errs["confirm_path"]; ok {
				hint = "confirmation path must equal target path"
			}
		}
		return Request{}, apperr.Validation(string(op), p.Path, "invalid parameters: "+err.Error(), hint)
	}

	req := Request{Target: p.Path, DryRun: p.DryRun}
	switch op {
	case KindCreate:
		req.Op = Create{Parents: boolOr(p.CreateParents, true)}
	case KindRename:
		req.Op = Rename{NewName: p.NewName, UpdateReferences: boolOr(p.UpdateReferences, true)}
	case KindMove:
		req.Op = Move{Destination: *p.Destination, UpdateReferences: boolOr(p.UpdateReferences, true)}
	case KindDelete:
		req.Op = Delete{Force: p.Force, ConfirmPath: p.ConfirmPath, CheckReferences: boolOr(p.CheckReferences, true)}
	case KindList:
		req.Op = List{
			Recursive:    p.Recursive,
			MaxDepth:     p.MaxDepth,
			IncludeStats: boolOr(p.IncludeStats, true),
			Offset:       p.Offset,
			PageSize:     p.PageSize,
		}
	}
	return req, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
