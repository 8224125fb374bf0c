// cmd/restore.go

package cmd

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/backup"
	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_err"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
)

var restorePrint bool

// RestoreCmd replays a pre-import backup into the vault.
var RestoreCmd = &cobra.Command{
	Use:   "restore [list|latest|<backup-name>]",
	Short: "Replay a pre-import backup into the vault",
	Long: `Restore re-creates the entries of a backup file written by a previous
import. "list" shows the available backups, "latest" picks the newest
one. With --print the backup is rendered back to its original tabular
form instead of touching the vault.`,
	Args: cobra.ExactArgs(1),
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		store := &backup.Store{Dir: settings.BackupDir}

		if args[0] == "list" {
			names, err := store.List()
			if err != nil {
				return cerr.Wrap(err, "list backups")
			}
			if len(names) == 0 {
				fmt.Println("No backups found.")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}

		name := args[0]
		if name == "latest" {
			latest, err := store.Latest()
			if err != nil {
				return kyklos_err.NewExpectedError(err)
			}
			name = latest
		}

		record, err := store.Load(rc.Ctx, name)
		if err != nil {
			return cerr.Wrapf(err, "load backup %s", name)
		}

		if restorePrint {
			text, err := backup.RestoreTable(record)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		}

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
			Vault:   client,
			Store:   store,
			AgentID: settings.AgentID,
		}
		report, err := importer.RestoreRecord(rc.Ctx, record)
		if err != nil {
			return cerr.Wrapf(err, "restore %s", name)
		}

		rc.Log.Info("♻️  Restore complete",
			zap.String("backup", name),
			zap.Int("created", report.Created),
			zap.Int("duplicates", report.Duplicates))

		fmt.Printf("Restored %d credentials from %s (%d duplicates skipped)\n",
			report.Created, name, report.Duplicates)
		return nil
	}),
}

func init() {
	RestoreCmd.Flags().BoolVar(&restorePrint, "print", false, "Print the backup as its original table instead of writing to the vault")
}
