// cmd/rotate.go

package cmd

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/browser"
	kyklos "github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_cli"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_err"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/rotation"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
)

var (
	rotateSite   string
	rotateDryRun bool
	rotateLength int
)

// RotateCmd walks the vault's password entries and rotates each one that
// has a usable site configuration.
var RotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate vault passwords through each site's change-password flow",
	Long: `Rotate fetches every password entry from the vault daemon, generates a
replacement secret, drives the site's login and change-password flow in a
browser, and writes the new secret back to the vault. The old secret is
appended to the local history file before the site sees the new one.

With --dry-run no browser is launched and nothing is written; the
generated passwords are printed instead.`,
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		handler := kyklos.NewSignalHandler(rc.Ctx)
		defer handler.Stop()
		rc.Ctx = handler.Context()

		directory, err := sites.Load(rc.Ctx, settings.SitesPath)
		if err != nil {
			return cerr.Wrapf(err, "load site directory %s", settings.SitesPath)
		}

		client, err := openVault(rc)
		if err != nil {
			return err
		}
		handler.RegisterCleanup(client.Close)
		defer func() { _ = client.Close() }()

		weUnlocked, err := unlockVault(rc, client)
		if err != nil {
			return err
		}
		defer relockVault(rc, client, weUnlocked)

		creds, err := listCredentials(rc, client, directory, rotateSite)
		if err != nil {
			return err
		}
		if len(creds) == 0 {
			rc.Log.Info("No matching credentials to rotate")
			fmt.Println("Nothing to rotate.")
			return nil
		}

		rotator := &rotation.Rotator{
			Vault:   client,
			History: &rotation.HistoryStore{Dir: settings.HistoryDir},
			AgentID: settings.AgentID,
			Length:  effectiveLength(rotateLength, settings.PasswordLength),
			DryRun:  rotateDryRun,
		}

		if !rotateDryRun {
			session, err := browser.NewSession(rc.Ctx, browser.SessionOptions{
				Headless: settings.Headless,
			}, rc.Log)
			if err != nil {
				return kyklos_err.NewExpectedError(cerr.Wrap(err, "launch browser"))
			}
			handler.RegisterCleanup(session.Close)
			defer func() { _ = session.Close() }()
			rotator.Page = session
		}

		runner := &rotation.Runner{
			Rotator:   rotator,
			Directory: directory,
			Pause:     settings.Pause,
		}

		rc.Log.Info("🔄 Starting rotation run",
			zap.Int("credentials", len(creds)),
			zap.Bool("dry_run", rotateDryRun))

		summary := runner.RotateAll(rc.Ctx, creds)
		printSummary(summary)

		if summary.Failed > 0 {
			return kyklos_err.NewExpectedError(
				cerr.Newf("%d of %d rotations failed", summary.Failed, len(summary.Results)))
		}
		return nil
	}),
}

func init() {
	RotateCmd.Flags().StringVar(&rotateSite, "site", "", "Rotate only credentials matching this site key or name")
	RotateCmd.Flags().BoolVar(&rotateDryRun, "dry-run", false, "Generate passwords without touching the browser or the vault")
	RotateCmd.Flags().IntVar(&rotateLength, "length", 0, "Generated password length (overrides the configured password_length)")
}

// effectiveLength resolves the generated password length: the --length
// flag wins, then the configured password_length, then the rotator's
// built-in default.
func effectiveLength(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}

// listCredentials pulls the vault's password entries and optionally
// narrows them to one site.
func listCredentials(rc *kyklos_io.RuntimeContext, client *vaultd.Client, directory *sites.Directory, siteFilter string) ([]rotation.Credential, error) {
	summaries, err := client.List(rc.Ctx, vaultd.CategoryAuthentication)
	if err != nil {
		return nil, cerr.Wrap(err, "list vault credentials")
	}

	var target *sites.Site
	if siteFilter != "" {
		s, ok := directory.Resolve(siteFilter)
		if !ok {
			return nil, kyklos_err.NewExpectedError(cerr.Newf("no site matches %q", siteFilter))
		}
		target = s
	}

	var creds []rotation.Credential
	for _, s := range summaries {
		if s.EntryType != vaultd.EntryTypePassword {
			continue
		}
		if target != nil && !credentialMatchesSite(s, directory, target) {
			continue
		}
		creds = append(creds, rotation.Credential{
			ID:       s.ID,
			Name:     s.Name,
			URL:      s.URL,
			Username: s.Username,
		})
	}
	return creds, nil
}

func credentialMatchesSite(s vaultd.EntrySummary, directory *sites.Directory, target *sites.Site) bool {
	if s.URL != "" {
		if resolved, ok := directory.Resolve(s.URL); ok {
			return resolved == target
		}
	}
	resolved, ok := directory.Resolve(s.Name)
	return ok && resolved == target
}

func printSummary(summary rotation.Summary) {
	for _, r := range summary.Results {
		switch r.Outcome {
		case rotation.OutcomeSuccess:
			if r.DryRun {
				fmt.Printf("✅ %s: would rotate (new password: %s)\n", r.Credential.Name, r.NewPassword)
			} else {
				fmt.Printf("✅ %s: rotated\n", r.Credential.Name)
			}
		case rotation.OutcomeSkipped:
			fmt.Printf("⏭  %s: skipped (%s)\n", r.Credential.Name, r.Reason)
		case rotation.OutcomeFailed:
			if r.Err != nil {
				fmt.Printf("❌ %s: failed (%s): %v\n", r.Credential.Name, r.Reason, r.Err)
			} else {
				fmt.Printf("❌ %s: failed (%s)\n", r.Credential.Name, r.Reason)
			}
		}
	}
	fmt.Printf("\nRotation complete: %d succeeded, %d skipped, %d failed\n",
		summary.Succeeded, summary.Skipped, summary.Failed)
}
