// pkg/backup/importer_test.go

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVaultWriter struct {
	existing []vaultd.EntrySummary
	created  []vaultd.NewEntry
	listErr  error
	onCreate func()
}

func (v *fakeVaultWriter) List(_ context.Context, category string) ([]vaultd.EntrySummary, error) {
	if v.listErr != nil {
		return nil, v.listErr
	}
	return v.existing, nil
}

func (v *fakeVaultWriter) Create(_ context.Context, entry vaultd.NewEntry) (string, error) {
	if v.onCreate != nil {
		v.onCreate()
	}
	v.created = append(v.created, entry)
	return "id-" + entry.Name, nil
}

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestImportFile_TwoRowsAgainstEmptyVault(t *testing.T) {
	table := "name,url,username,password\n" +
		`"Mail","https://mail.example.com","a@x.com","p1"` + "\n" +
		`"Bank","https://bank.example.com","b@x.com","p2"` + "\n"
	path := writeImportFile(t, table)

	store := &Store{Dir: t.TempDir()}
	vault := &fakeVaultWriter{}

	// The backup file must already be durable when the first create is
	// issued.
	backupExistedAtCreate := false
	vault.onCreate = func() {
		names, err := store.List()
		backupExistedAtCreate = err == nil && len(names) == 1
	}

	im := &Importer{Vault: vault, Store: store, AgentID: "kyklos-test"}
	report, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Duplicates)
	assert.True(t, backupExistedAtCreate, "backup not on disk before first vault create")

	// Backup content: count invariant and reversible secrets.
	name, err := store.Latest()
	require.NoError(t, err)
	record, err := store.Load(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Count)
	secret, err := crypto.DecodeSecret(record.Entries[0].SecretEncoded)
	require.NoError(t, err)
	assert.Equal(t, "p1", string(secret))

	// Vault writes carry the encoded secret, never raw bytes.
	require.Len(t, vault.created, 2)
	assert.Equal(t, crypto.EncodeSecret([]byte("p1")), vault.created[0].Value)
	assert.Equal(t, vaultd.CategoryAuthentication, vault.created[0].Category)
	assert.Equal(t, vaultd.EntryTypePassword, vault.created[0].EntryType)
}

func TestImportFile_SkipsDuplicates(t *testing.T) {
	table := "name,url,username,password\n" +
		"Mail,https://mail.example.com,a@x.com,p1\n" +
		"Mail again,https://mail.example.com,a@x.com,p1-changed\n" +
		"Bank,https://bank.example.com,b@x.com,p2\n"
	path := writeImportFile(t, table)

	vault := &fakeVaultWriter{
		existing: []vaultd.EntrySummary{
			{ID: "e1", Name: "Old Mail", URL: "https://mail.example.com", Username: "a@x.com"},
		},
	}
	im := &Importer{Vault: vault, Store: &Store{Dir: t.TempDir()}}

	report, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	// Both mail rows collide with the existing vault entry.
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Duplicates)
	require.Len(t, vault.created, 1)
	assert.Equal(t, "Bank", vault.created[0].Name)
}

func TestImportFile_MissingFile(t *testing.T) {
	im := &Importer{Vault: &fakeVaultWriter{}, Store: &Store{Dir: t.TempDir()}}
	_, err := im.ImportFile(context.Background(), "/does/not/exist.csv")
	assert.Error(t, err)
}

func TestImportFile_NoRows(t *testing.T) {
	path := writeImportFile(t, "name,url,username,password\nshort\n")
	im := &Importer{Vault: &fakeVaultWriter{}, Store: &Store{Dir: t.TempDir()}}
	_, err := im.ImportFile(context.Background(), path)
	assert.Error(t, err)
}

func TestImportFile_ListFailureAbortsAfterBackup(t *testing.T) {
	path := writeImportFile(t, "name,url,username,password\nMail,https://mail.example.com,a@x.com,p1\n")
	store := &Store{Dir: t.TempDir()}
	vault := &fakeVaultWriter{listErr: vaultd.ErrVaultUnavailable}
	im := &Importer{Vault: vault, Store: store}

	_, err := im.ImportFile(context.Background(), path)
	assert.ErrorIs(t, err, vaultd.ErrVaultUnavailable)

	// The backup still exists: it was written before the vault was
	// touched.
	names, lerr := store.List()
	require.NoError(t, lerr)
	assert.Len(t, names, 1)
}

func TestRestoreRecord(t *testing.T) {
	record := NewRecord("orig.csv", []Row{
		{Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com", Password: "p1"},
		{Name: "Bank", URL: "https://bank.example.com", Username: "b@x.com", Password: "p2"},
	})

	vault := &fakeVaultWriter{
		existing: []vaultd.EntrySummary{
			{ID: "e1", URL: "https://bank.example.com", Username: "b@x.com"},
		},
	}
	im := &Importer{Vault: vault, Store: &Store{Dir: t.TempDir()}}

	report, err := im.RestoreRecord(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Duplicates)
	require.Len(t, vault.created, 1)
	assert.Equal(t, "Mail", vault.created[0].Name)
}

func TestStore_ListAndLatest(t *testing.T) {
	store := &Store{Dir: t.TempDir()}

	_, err := store.Latest()
	assert.Error(t, err)

	rec := NewRecord("a.csv", []Row{{Name: "A", URL: "https://a.example", Username: "u", Password: "p"}})
	_, err = store.Write(context.Background(), rec)
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	require.Len(t, names, 1)

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, names[0], latest)
}

func TestStore_LoadRejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Dir: dir}
	corrupt := `{"imported_at":"2026-01-01T00:00:00Z","source_path":"x","count":3,"entries":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup-20260101-000000.json"), []byte(corrupt), 0600))

	_, err := store.Load(context.Background(), "backup-20260101-000000.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count")
}
