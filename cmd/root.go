/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/config"
	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_err"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

// settings is resolved once per invocation in PersistentPreRunE and read
// by every subcommand.
var settings config.Settings

// RootCmd is the base command for kyklos.
var RootCmd = &cobra.Command{
	Use:   "kyklos",
	Short: "Kyklos rotates credentials stored in the pandora vault daemon",
	Long: `Kyklos walks the credentials held by the local vault daemon, drives each
site's login and change-password flow in a browser, and writes the new
secret back to the vault. Old secrets are appended to a local history
before any site sees the new one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configFile)
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("⚠️  No subcommand provided. Try `kyklos help`.")
		return cmd.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ~/.config/kyklos/config.yaml)")

	for _, subCmd := range []*cobra.Command{
		RotateCmd,
		LoginCmd,
		ImportCmd,
		RestoreCmd,
		SitesCmd,
		VaultCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if kyklos_err.IsExpectedUserError(err) {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
		} else {
			logger.L().Error("CLI execution error", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(kyklos_err.GetExitCode(err))
	}
}
