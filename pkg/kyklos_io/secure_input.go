// pkg/kyklos_io/secure_input.go

package kyklos_io

import (
	"fmt"
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// PromptPassword displays a prompt and reads a password without echoing.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", cerr.Wrap(err, "read password")
	}
	return strings.TrimSpace(string(raw)), nil
}

// ResolvePassphrase returns the vault passphrase from the environment if
// set (for scripted use), otherwise prompts on the terminal.
func ResolvePassphrase(envVar string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", cerr.Newf("no %s set and stdin is not a terminal", envVar)
	}
	return PromptPassword("Vault passphrase")
}
