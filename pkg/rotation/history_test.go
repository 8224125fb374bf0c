// pkg/rotation/history_test.go

package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_AppendAccumulates(t *testing.T) {
	store := &HistoryStore{Dir: t.TempDir()}
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "cred-1", []byte("first")))
	require.NoError(t, store.Append(ctx, "cred-1", []byte("second")))
	require.NoError(t, store.Append(ctx, "cred-2", []byte("other")))

	entries, err := store.Entries(ctx, "cred-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Oldest first; prior entries are never rewritten.
	first, err := crypto.DecodeSecret(entries[0].Password)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), first)
	second, err := crypto.DecodeSecret(entries[1].Password)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), second)

	assert.WithinDuration(t, time.Now().UTC(), entries[1].RotatedAt, time.Minute)

	other, err := store.Entries(ctx, "cred-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestHistoryStore_EmptyForUnknownCredential(t *testing.T) {
	store := &HistoryStore{Dir: t.TempDir()}
	entries, err := store.Entries(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryStore_RequiresCredentialID(t *testing.T) {
	store := &HistoryStore{Dir: t.TempDir()}
	assert.Error(t, store.Append(context.Background(), "", []byte("x")))
}
