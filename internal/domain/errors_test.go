package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	cause := errors.New("boom")
	wrapped := NewDomainErrorWithCause(ErrCodeUpstream, "linker failed", cause)
	assert.Equal(t, "[UPSTREAM_ERROR] linker failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestDomainError_IsMatchesCopiesWithCause(t *testing.T) {
	cause := errors.New("status 500")
	err := fmt.Errorf("execute: %w", ErrQueryExecution.WithCause(cause))

	assert.ErrorIs(t, err, ErrQueryExecution)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmptyQuestion)

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, ErrCodeExecution, domainErr.Code)
}
