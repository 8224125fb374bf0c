// cmd/sites.go

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_err"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
)

// SitesCmd groups commands for the site directory.
var SitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Inspect and validate the site directory",
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

var sitesFile string

// SitesValidateCmd checks every site configuration before a rotation
// run trusts it.
var SitesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every site's flows, selectors, and placeholders",
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		path := settings.SitesPath
		if sitesFile != "" {
			path = sitesFile
		}
		// Load validates the whole document; this command exists to
		// surface those findings directly.
		directory, err := sites.Load(rc.Ctx, path)
		if err != nil {
			return kyklos_err.NewExpectedError(err)
		}

		all := directory.Sites()
		rotatable := 0
		for _, s := range all {
			if s.Rotatable() {
				rotatable++
			}
		}
		fmt.Printf("✅ %d sites valid (%d rotatable, %d manual-only or MFA-gated)\n",
			len(all), rotatable, len(all)-rotatable)
		return nil
	}),
}

func init() {
	SitesValidateCmd.Flags().StringVar(&sitesFile, "file", "", "Validate this site directory file instead of the configured one")
	SitesCmd.AddCommand(SitesValidateCmd)
}
