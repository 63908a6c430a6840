package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	cause := stderrors.New("file does not exist")
	err := NewConfigurationError("clinic dataset missing", cause)

	assert.Equal(t, "CONFIGURATION: clinic dataset missing: file does not exist", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "VALIDATION: tags are required", NewValidationError("tags are required").Error())
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("startup: %w", NewConfigurationError("missing key", nil))

	assert.True(t, IsType(wrapped, ErrorTypeConfiguration))
	assert.False(t, IsType(wrapped, ErrorTypeExternal))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeConfiguration))
}

func TestTypeOfAndMessageOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewExternalError("maps unavailable", stderrors.New("503")))

	typ, ok := TypeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeExternal, typ)
	assert.Equal(t, "maps unavailable", MessageOf(wrapped, "fallback"))

	_, ok = TypeOf(stderrors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, "fallback", MessageOf(stderrors.New("plain"), "fallback"))
}
