package api

import (
	"github.com/starford/vaultfold/internal/folders"
	"github.com/starford/vaultfold/internal/lister"
)

// OperationRequest is the request body for POST /api/folders (aliased from the domain layer).
type OperationRequest = folders.Params

// OperationResult is the response body of every successful folder operation.
type OperationResult = folders.Result

// FolderEntry is one listed folder inside OperationResult.metadata.folders.
type FolderEntry = lister.Entry
