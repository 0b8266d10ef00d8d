package zsx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := &Error{Kind: ResponseError, Op: "navigate", Status: 503, Err: ErrBadStatus}
	assert.Equal(t, "zsx: navigate: response error (status 503): unexpected response status", err.Error())

	assert.Equal(t, "zsx: configuration error", (&Error{Kind: ConfigurationError}).Error())
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("click: %w", configError("scroll", "#x", ErrMissingSwapSelector))
	assert.True(t, IsKind(err, ConfigurationError))
	assert.False(t, IsKind(err, ResolutionError))
	assert.True(t, errors.Is(err, ErrMissingSwapSelector))
	assert.False(t, IsKind(errors.New("plain"), ConfigurationError))
}

func TestAmbiguousErrorMessage(t *testing.T) {
	err := ambiguousError(".item")
	assert.ErrorIs(t, err, ErrAmbiguousSelector)
	assert.Contains(t, err.Error(), `Multiple elements found with selector ".item" but no id found to disambiguate them.`)
}
