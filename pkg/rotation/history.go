// pkg/rotation/history.go
//
// Per-credential append-only history of previous secrets. An entry is
// written before the change-password sequence runs, so the prior secret
// is recoverable even if the site change or the vault write later
// fails. Entries are never deleted by this subsystem.

package rotation

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HistoryEntry records one prior secret. The password is stored in the
// reversible encoding; a history file is as sensitive as the vault.
type HistoryEntry struct {
	Password  string    `json:"password"` // encoded
	RotatedAt time.Time `json:"rotated_at"`
}

// HistoryStore keeps one JSON array per credential id.
type HistoryStore struct {
	Dir string
}

// Append records a credential's current secret ahead of a rotation
// attempt. The file is synced to durable storage before returning.
func (h *HistoryStore) Append(ctx context.Context, credentialID string, oldSecret []byte) error {
	if credentialID == "" {
		return cerr.New("credential id required")
	}

	path := h.pathFor(credentialID)
	entries, err := h.load(ctx, path)
	if err != nil {
		return err
	}

	entries = append(entries, HistoryEntry{
		Password:  crypto.EncodeSecret(oldSecret),
		RotatedAt: time.Now().UTC(),
	})

	if err := kyklos_io.WriteJSONDurable(ctx, path, entries); err != nil {
		return cerr.Wrapf(err, "persist history for %s", credentialID)
	}

	otelzap.Ctx(ctx).Debug("History entry written",
		zap.String("credential_id", credentialID),
		zap.Int("entries", len(entries)))
	return nil
}

// Entries returns the recorded history for a credential, oldest first.
func (h *HistoryStore) Entries(ctx context.Context, credentialID string) ([]HistoryEntry, error) {
	return h.load(ctx, h.pathFor(credentialID))
}

func (h *HistoryStore) load(ctx context.Context, path string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	if err := kyklos_io.ReadJSON(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *HistoryStore) pathFor(credentialID string) string {
	return filepath.Join(h.Dir, credentialID+".json")
}
