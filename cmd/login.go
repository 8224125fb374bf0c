// cmd/login.go

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
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
)

// LoginCmd drives only a site's login flow, which is the cheap way to
// verify a site configuration before trusting it with a rotation.
var LoginCmd = &cobra.Command{
	Use:   "login <site>",
	Short: "Run a site's login flow without changing anything",
	Long: `Login resolves the named site, fetches its credential from the vault,
and drives the login steps in a browser. No password is generated and no
history is written; use this to verify a new site configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: kyklos.Wrap(func(rc *kyklos_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		handler := kyklos.NewSignalHandler(rc.Ctx)
		defer handler.Stop()
		rc.Ctx = handler.Context()

		directory, err := sites.Load(rc.Ctx, settings.SitesPath)
		if err != nil {
			return cerr.Wrapf(err, "load site directory %s", settings.SitesPath)
		}
		site, ok := directory.Resolve(args[0])
		if !ok {
			return kyklos_err.NewExpectedError(cerr.Newf("no site matches %q", args[0]))
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

		entry, err := findSiteEntry(rc, client, directory, site)
		if err != nil {
			return err
		}

		session, err := browser.NewSession(rc.Ctx, browser.SessionOptions{
			Headless: settings.Headless,
		}, rc.Log)
		if err != nil {
			return kyklos_err.NewExpectedError(cerr.Wrap(err, "launch browser"))
		}
		handler.RegisterCleanup(session.Close)
		defer func() { _ = session.Close() }()

		rc.Log.Info("Driving login flow",
			zap.String("site", site.Name),
			zap.String("url", site.Login.URL))

		if err := session.Navigate(rc.Ctx, site.Login.URL); err != nil {
			return cerr.Wrap(err, "navigate to login page")
		}
		values := browser.Values{
			Username:    entry.Username,
			Password:    string(entry.Value),
			OldPassword: string(entry.Value),
		}
		if err := browser.NewRunner(session).Run(rc.Ctx, site.Login.Steps, values); err != nil {
			return kyklos_err.NewExpectedError(cerr.Wrapf(err, "login flow for %s", site.Name))
		}

		fmt.Printf("✅ Login flow for %s completed\n", site.Name)
		return nil
	}),
}

// findSiteEntry picks the vault credential belonging to a site.
func findSiteEntry(rc *kyklos_io.RuntimeContext, client *vaultd.Client, directory *sites.Directory, site *sites.Site) (*vaultd.Entry, error) {
	summaries, err := client.List(rc.Ctx, vaultd.CategoryAuthentication)
	if err != nil {
		return nil, cerr.Wrap(err, "list vault credentials")
	}
	for _, s := range summaries {
		if s.EntryType != vaultd.EntryTypePassword {
			continue
		}
		if !credentialMatchesSite(s, directory, site) {
			continue
		}
		entry, err := client.Get(rc.Ctx, s.ID, settings.AgentID, "login")
		if err != nil {
			return nil, cerr.Wrapf(err, "fetch credential %s", s.Name)
		}
		return entry, nil
	}
	return nil, kyklos_err.NewExpectedError(cerr.Newf("no vault credential matches site %s", site.Name))
}
