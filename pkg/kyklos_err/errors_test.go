// pkg/kyklos_err/errors_test.go

package kyklos_err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExpectedError(t *testing.T) {
	assert.Nil(t, NewExpectedError(nil))

	base := errors.New("wrong passphrase")
	wrapped := NewExpectedError(base)
	assert.True(t, IsExpectedUserError(wrapped))
	assert.Equal(t, "wrong passphrase", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}

func TestIsExpectedUserError_WrappedDeeper(t *testing.T) {
	inner := NewExpectedError(errors.New("vault locked"))
	outer := fmt.Errorf("setup: %w", inner)
	assert.True(t, IsExpectedUserError(outer))
	assert.False(t, IsExpectedUserError(errors.New("disk on fire")))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, GetExitCode(nil))
	assert.Equal(t, 0, GetExitCode(NewExpectedError(errors.New("user fixable"))))
	assert.Equal(t, 1, GetExitCode(errors.New("system failure")))
}
