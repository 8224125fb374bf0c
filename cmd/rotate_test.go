// cmd/rotate_test.go

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/config"
)

// The configured password_length (config file or KYKLOS_PASSWORD_LENGTH)
// must drive the rotator when --length is not given; the flag wins when
// it is.
func TestEffectiveLength(t *testing.T) {
	defaults := config.Defaults()

	assert.Equal(t, defaults.PasswordLength, effectiveLength(0, defaults.PasswordLength))
	assert.Equal(t, 32, effectiveLength(0, 32))
	assert.Equal(t, 48, effectiveLength(48, 32), "--length must override the configured value")
	assert.Equal(t, 48, effectiveLength(48, 0))
}
