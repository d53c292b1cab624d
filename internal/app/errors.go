package app

import (
	"errors"
	"fmt"
	"net/http"

	"tutorials/api/internal/store"
	"tutorials/api/internal/tree"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// storeError turns the store's classified failures into client errors.
// Anything unrecognised is returned unchanged and surfaces as a 500.
func storeError(err error) error {
	var foreign *tree.ForeignChildError
	switch {
	case errors.As(err, &foreign):
		return domainError(http.StatusBadRequest, "FOREIGN_CHILD", foreign.Error(), map[string]any{"id": foreign.ID})
	case errors.Is(err, store.ErrSlugConflict):
		return domainError(http.StatusConflict, "SLUG_CONFLICT", "Slug conflict under same parent", nil)
	case errors.Is(err, store.ErrPathConflict):
		return domainError(http.StatusConflict, "PATH_CONFLICT", "Another topic already has this path", nil)
	case errors.Is(err, store.ErrParentNotFound):
		return domainError(http.StatusBadRequest, "PARENT_NOT_FOUND", "Parent topic does not exist", nil)
	case errors.Is(err, store.ErrCycle):
		return domainError(http.StatusBadRequest, "CYCLE", "A topic cannot be moved under itself or its descendants", nil)
	case errors.Is(err, store.ErrTopicNotFound):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Topic not found", nil)
	case errors.Is(err, store.ErrDuplicateContent):
		return domainError(http.StatusConflict, "DUPLICATE_CONTENT", "Duplicate content (hash conflict)", nil)
	case errors.Is(err, store.ErrAlreadyLiked):
		return domainError(http.StatusConflict, "ALREADY_LIKED", "already liked", nil)
	case errors.Is(err, store.ErrNotFound):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	default:
		return err
	}
}

func notFoundAs(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
	}
	return storeError(err)
}
