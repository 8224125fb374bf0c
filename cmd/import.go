// cmd/import.go

package cmd

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/backup"
	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
)

var importCategory string

// ImportCmd loads a password-manager export into the vault. A backup of
// the parsed rows is written to disk before the first vault write, so a
// half-finished import can always be replayed with `kyklos restore`.
var ImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a CSV credential export into the vault",
	Long: `Import parses a comma-separated export (name,url,username,password, with
the name column optional) and creates one vault entry per row. Rows whose
url+username pair already exists in the vault are skipped. The parsed
rows are written to a timestamped backup file before any vault entry is
created.

Backup files store secrets reversibly so a half-finished import can be
replayed; treat the backup directory with the same care as the vault
itself.`,
	Args: cobra.ExactArgs(1),
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		client, err := openVault(rc)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		weUnlocked, err := unlockVault(rc, client)
		if err != nil {
			return err
		}
		defer relockVault(rc, client, weUnlocked)

		importer := &backup.Importer{
			Vault:    client,
			Store:    &backup.Store{Dir: settings.BackupDir},
			AgentID:  settings.AgentID,
			Category: importCategory,
		}

		report, err := importer.ImportFile(rc.Ctx, args[0])
		if err != nil {
			return cerr.Wrapf(err, "import %s", args[0])
		}

		rc.Log.Info("📥 Import complete",
			zap.Int("created", report.Created),
			zap.Int("duplicates", report.Duplicates),
			zap.String("backup", report.BackupPath))

		fmt.Printf("Imported %d credentials (%d duplicates skipped)\n", report.Created, report.Duplicates)
		fmt.Printf("Backup written to %s\n", report.BackupPath)
		return nil
	}),
}

func init() {
	ImportCmd.Flags().StringVar(&importCategory, "category", vaultd.CategoryAuthentication, "Vault category for created entries")
}
