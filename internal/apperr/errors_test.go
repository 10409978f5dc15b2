package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := StateStore("put job", cause)

	assert.Equal(t, "state_store: put job: state store failure: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("warm: %w", SourceAccess("list A", errors.New("timeout")))

	assert.Equal(t, KindSourceAccess, KindOf(err))
	assert.True(t, Is(err, KindSourceAccess))
	assert.False(t, Is(err, KindParse))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestConfigurationWithoutCause(t *testing.T) {
	err := Configuration("config", "FOLDER_INV_A is required")
	assert.Equal(t, "configuration: config: FOLDER_INV_A is required", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
