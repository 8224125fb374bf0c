// cmd/vault.go

package cmd

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
)

// VaultCmd groups commands that talk to the vault daemon directly.
var VaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Inspect and control the vault daemon",
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

// VaultStatusCmd reports whether the daemon is reachable and unlocked.
var VaultStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vault daemon's lock state",
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		client, err := openVault(rc)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		status, err := client.Status(rc.Ctx)
		if err != nil {
			return cerr.Wrap(err, "query vault status")
		}

		switch {
		case !status.VaultExists:
			fmt.Println("Vault: not created")
		case status.Unlocked:
			fmt.Println("Vault: 🔓 unlocked")
		default:
			fmt.Println("Vault: 🔒 locked")
		}
		return nil
	}),
}

// VaultLockCmd locks the daemon, e.g. after an unattended run.
var VaultLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the vault daemon",
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		client, err := openVault(rc)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		if err := client.Lock(rc.Ctx); err != nil {
			return cerr.Wrap(err, "lock vault")
		}
		fmt.Println("🔒 Vault locked")
		return nil
	}),
}

func init() {
	VaultCmd.AddCommand(VaultStatusCmd)
	VaultCmd.AddCommand(VaultLockCmd)
}
