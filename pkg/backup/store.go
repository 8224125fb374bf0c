// pkg/backup/store.go
//
// Durable storage for backup records: one JSON document per import
// operation, named by an operation timestamp, under an
// operator-controlled directory.

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Store reads and writes backup documents in one directory.
type Store struct {
	Dir string
}

// Write persists a record and returns its path. The document is synced
// to durable storage before this returns: it is the sole recovery path
// if the following import misbehaves, so it must exist on disk before
// any vault create is issued.
func (s *Store) Write(ctx context.Context, record *Record) (string, error) {
	name := fmt.Sprintf("backup-%s.json", record.ImportedAt.Format("20060102-150405"))
	path := filepath.Join(s.Dir, name)

	if err := kyklos_io.WriteJSONDurable(ctx, path, record); err != nil {
		return "", cerr.Wrap(err, "write backup")
	}

	otelzap.Ctx(ctx).Info("Backup written",
		zap.String("path", path),
		zap.Int("count", record.Count))
	return path, nil
}

// List returns backup file names, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, cerr.Wrapf(err, "read backup directory %s", s.Dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "backup-") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // timestamp naming makes this chronological
	return names, nil
}

// Latest returns the most recent backup name.
func (s *Store) Latest() (string, error) {
	names, err := s.List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", cerr.New("no backups found")
	}
	return names[len(names)-1], nil
}

// Load reads one backup by name and checks its invariants.
func (s *Store) Load(ctx context.Context, name string) (*Record, error) {
	var record Record
	if err := kyklos_io.ReadJSON(ctx, filepath.Join(s.Dir, name), &record); err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, cerr.Wrapf(err, "backup %s", name)
	}
	return &record, nil
}
