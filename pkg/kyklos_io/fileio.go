// pkg/kyklos_io/fileio.go

package kyklos_io

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ReadYAML reads a YAML file into the provided value.
func ReadYAML(ctx context.Context, filePath string, out interface{}) error {
	log := otelzap.Ctx(ctx)
	log.Debug("📖 Reading YAML file", zap.String("path", filePath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cerr.Wrapf(err, "read YAML file %s", filePath)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return cerr.Wrapf(err, "parse YAML file %s", filePath)
	}
	return nil
}

// ReadJSON reads a JSON file into the provided value.
func ReadJSON(ctx context.Context, filePath string, out interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return cerr.Wrapf(err, "read JSON file %s", filePath)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return cerr.Wrapf(err, "parse JSON file %s", filePath)
	}
	return nil
}

// WriteJSONDurable writes a JSON document with owner-only permissions,
// syncing both the file and its directory before returning. Used for
// backup and history records: once this returns, the document survives
// a crash.
func WriteJSONDurable(ctx context.Context, filePath string, in interface{}) error {
	log := otelzap.Ctx(ctx)

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return cerr.Wrap(err, "marshal JSON")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return cerr.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return cerr.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return cerr.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return cerr.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return cerr.Wrapf(err, "rename into place: %s", filePath)
	}

	// Sync the directory so the rename itself is durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	log.Debug("✅ JSON document written",
		zap.String("path", filePath),
		zap.Int("size", len(data)))
	return nil
}
