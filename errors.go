package docpatch

import (
	stderrors "errors"
	"fmt"

	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/hkloudou/docpatch/internal/storage"
)

// Error is the structured error returned by the client.
type Error = errors.Error

// ErrorCode identifies specific error conditions
type ErrorCode = errors.ErrorCode

const (
	ErrCodeValidation       = errors.ErrCodeValidation
	ErrCodeNotFound         = errors.ErrCodeNotFound
	ErrCodeConflict         = errors.ErrCodeConflict
	ErrCodeRetriesExhausted = errors.ErrCodeRetriesExhausted
	ErrCodeStore            = errors.ErrCodeStore
	ErrCodeParse            = errors.ErrCodeParse
)

// IsNotFound reports a missing document or a filter that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrCodeNotFound) || stderrors.Is(err, storage.ErrNotFound)
}

// IsValidation reports invalid input rejected before any store call.
func IsValidation(err error) bool {
	return errors.Is(err, errors.ErrCodeValidation)
}

// IsRetriesExhausted reports a store call still rate limited after the
// retry budget ran out.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, errors.ErrCodeRetriesExhausted)
}

// IsConflict reports a create on an id that is already taken.
func IsConflict(err error) bool {
	return errors.Is(err, errors.ErrCodeConflict) || stderrors.Is(err, storage.ErrConflict)
}

func validationf(format string, args ...interface{}) error {
	return errors.ValidationError(format, args...)
}

// storeError wraps a gateway failure unless it already carries a code.
func storeError(op string, err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	switch {
	case stderrors.Is(err, storage.ErrConflict):
		return errors.Wrap(errors.ErrCodeConflict, fmt.Sprintf("failed to %s", op), err)
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("failed to %s", op), err)
	}
	return errors.Wrap(errors.ErrCodeStore, fmt.Sprintf("failed to %s", op), err)
}
