package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"cloud-storage/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &apperr.ValidationError{Fields: map[string]string{
		"file":    "this field is required",
		"comment": "too long",
	}}
	assert.Equal(t, "validation failed: comment: too long; file: this field is required", err.Error())

	wrapped := fmt.Errorf("create file: %w", err)
	assert.True(t, apperr.IsValidation(wrapped))
	assert.False(t, apperr.IsValidation(apperr.ErrNotFound))
}

func TestSentinelsWrap(t *testing.T) {
	err := fmt.Errorf("get file: %w", apperr.ErrNotFound)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, errors.Is(err, apperr.ErrForbidden))
}
