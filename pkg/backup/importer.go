// pkg/backup/importer.go

package backup

import (
	"context"
	"os"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// VaultWriter is the slice of the protocol client needed for imports.
type VaultWriter interface {
	List(ctx context.Context, category string) ([]vaultd.EntrySummary, error)
	Create(ctx context.Context, entry vaultd.NewEntry) (string, error)
}

// Importer routes tabular files through the codec and into the vault,
// always writing a durable backup first.
type Importer struct {
	Vault   VaultWriter
	Store   *Store
	AgentID string

	// Category for created entries; defaults to authentication.
	Category string
}

func (im *Importer) category() string {
	if im.Category != "" {
		return im.Category
	}
	return vaultd.CategoryAuthentication
}

// Report summarizes one import or restore operation.
type Report struct {
	BackupPath string
	Created    int
	Duplicates int
}

// ImportFile reads a tabular export, writes the pre-import backup, and
// creates each non-duplicate row in the vault. Row-level problems never
// abort the batch; setup problems (unreadable file, backup write
// failure) abort immediately.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "read import file %s", path)
	}

	rows := ParseTable(string(data))
	if len(rows) == 0 {
		return nil, cerr.Newf("no credential rows found in %s", path)
	}

	// The backup must be durable before the first vault mutation.
	record := NewRecord(path, rows)
	backupPath, err := im.Store.Write(ctx, record)
	if err != nil {
		return nil, err
	}

	report, err := im.createRows(ctx, rows)
	if err != nil {
		return nil, err
	}
	report.BackupPath = backupPath
	return report, nil
}

// RestoreRecord re-creates a previously backed-up record's entries in
// the vault, with the same duplicate handling as an import.
func (im *Importer) RestoreRecord(ctx context.Context, record *Record) (*Report, error) {
	rows, err := record.Rows()
	if err != nil {
		return nil, err
	}
	return im.createRows(ctx, rows)
}

func (im *Importer) createRows(ctx context.Context, rows []Row) (*Report, error) {
	log := otelzap.Ctx(ctx)

	existing, err := im.Vault.List(ctx, im.category())
	if err != nil {
		return nil, cerr.Wrap(err, "list existing entries")
	}
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[dedupeKey(e.URL, e.Username)] = struct{}{}
	}

	report := &Report{}
	for _, row := range rows {
		key := dedupeKey(row.URL, row.Username)
		if _, dup := seen[key]; dup {
			log.Debug("Skipping duplicate entry",
				zap.String("url", row.URL), zap.String("username", row.Username))
			report.Duplicates++
			continue
		}

		_, err := im.Vault.Create(ctx, vaultd.NewEntry{
			Category:  im.category(),
			EntryType: vaultd.EntryTypePassword,
			Name:      row.Name,
			Value:     crypto.EncodeSecret([]byte(row.Password)),
			Username:  row.Username,
			URL:       row.URL,
		})
		if err != nil {
			return report, cerr.Wrapf(err, "create entry %q", row.Name)
		}
		seen[key] = struct{}{}
		report.Created++
	}

	log.Info("Import completed",
		zap.Int("created", report.Created),
		zap.Int("duplicates", report.Duplicates))
	return report, nil
}

func dedupeKey(url, username string) string {
	return url + "\x00" + username
}
