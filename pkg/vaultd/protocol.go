// pkg/vaultd/protocol.go
//
// Wire types for the vault daemon protocol: newline-delimited JSON,
// one request object and one response object per line.

package vaultd

import (
	"encoding/json"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
)

// Categories understood by the daemon.
const (
	CategoryAuthentication = "authentication"
	CategoryFinancial      = "financial"
	CategoryIdentity       = "identity"
	CategoryHealth         = "health"
	CategoryPersonal       = "personal"
	CategoryPatterns       = "patterns"
)

// Entry types. Password is the only type this tool creates.
const (
	EntryTypePassword = "password"
	EntryTypeAPIKey   = "api_key"
)

// request is one line on the wire. RequestID correlates the reply;
// daemons that predate correlation ids simply echo nothing, and the
// client falls back to FIFO matching.
type request struct {
	Cmd       string    `json:"cmd"`
	RequestID string    `json:"request_id,omitempty"`
	Passphrase string   `json:"passphrase,omitempty"`
	Category  string    `json:"category,omitempty"`
	ID        string    `json:"id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	Purpose   string    `json:"purpose,omitempty"`
	Value     string    `json:"value,omitempty"`
	Entry     *NewEntry `json:"entry,omitempty"`
}

// response is one line back from the daemon.
type response struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// NewEntry is the payload of a create request. Value carries the secret
// in the reversible text encoding, never plaintext binary.
type NewEntry struct {
	Category  string `json:"category"`
	EntryType string `json:"entry_type"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
}

// EntrySummary is one element of a list response.
type EntrySummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	EntryType string `json:"entry_type"`
}

// Entry is a full credential record as returned by get. The secret is
// decoded from the wire encoding into Value; callers must treat it as a
// transient in-memory copy and never log it in full.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	EntryType string `json:"entry_type"`
	Value     []byte `json:"-"`
}

// wireEntry mirrors Entry with the secret still encoded.
type wireEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	EntryType string `json:"entry_type"`
	Value     string `json:"value"`
}

func (w wireEntry) decode() (*Entry, error) {
	secret, err := crypto.DecodeSecret(w.Value)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        w.ID,
		Name:      w.Name,
		Username:  w.Username,
		URL:       w.URL,
		EntryType: w.EntryType,
		Value:     secret,
	}, nil
}

// Status is the daemon's self-report.
type Status struct {
	Unlocked    bool `json:"unlocked"`
	VaultExists bool `json:"vault_exists"`
}
