// pkg/rotation/machine.go
//
// Per-credential rotation pipeline:
//
//	Fetch -> Generate -> Login -> NavigateChange -> ChangeSteps ->
//	PersistHistory -> Done
//
// with a dry-run short-circuit after Generate and the MFA gate before
// any browser interaction. The history entry is written after a
// successful login and before any change-password step executes:
// browser-side mutation is not reversible, so the old secret must be on
// disk first.

package rotation

import (
	"context"
	"fmt"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/browser"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// VaultService is the slice of the protocol client the rotator needs.
type VaultService interface {
	Get(ctx context.Context, id, agentID, purpose string) (*vaultd.Entry, error)
	Update(ctx context.Context, id string, secret []byte) error
	Delete(ctx context.Context, id string) error
	Create(ctx context.Context, entry vaultd.NewEntry) (string, error)
}

// DefaultPasswordLength for newly generated secrets.
const DefaultPasswordLength = 20

// Rotator drives one credential at a time through the rotation states.
type Rotator struct {
	Vault   VaultService
	History *HistoryStore
	Page    browser.Page // nil in dry runs
	AgentID string
	Length  int
	DryRun  bool

	// generate is swappable for tests; defaults to crypto.GeneratePassword.
	generate func(int) (string, error)
}

func (r *Rotator) passwordLength() int {
	if r.Length >= 4 {
		return r.Length
	}
	return DefaultPasswordLength
}

func (r *Rotator) generatePassword() (string, error) {
	if r.generate != nil {
		return r.generate(r.passwordLength())
	}
	return crypto.GeneratePassword(r.passwordLength())
}

// Rotate runs the full pipeline for one credential. Panics during
// browser interaction are caught at this boundary so one bad site never
// aborts the run for other credentials.
func (r *Rotator) Rotate(ctx context.Context, cred Credential, site *sites.Site) (result Result) {
	log := otelzap.Ctx(ctx)
	result.Credential = cred
	result.DryRun = r.DryRun

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Panic during rotation, isolated to this credential",
				zap.String("credential", cred.Name), zap.Any("panic", rec))
			result.Outcome = OutcomeFailed
			result.Reason = fmt.Sprintf("panic: %v", rec)
		}
	}()

	// Fetch: the current secret, held in memory only for this attempt.
	entry, err := r.Vault.Get(ctx, cred.ID, r.AgentID, "rotation")
	if err != nil {
		return failed(result, ReasonFetchFailed, err)
	}
	oldSecret := entry.Value
	username := entry.Username
	if username == "" {
		username = cred.Username
	}

	// Generate: cannot fail short of an exhausted entropy source.
	newPassword, err := r.generatePassword()
	if err != nil {
		return failed(result, "generate_failed", err)
	}

	// Dry-run short-circuit: nothing below this line is touched.
	if r.DryRun {
		result.Outcome = OutcomeSuccess
		result.NewPassword = newPassword
		return result
	}

	// Gate: manual-only and MFA-gated sites are skipped before any
	// browser interaction.
	if site == nil {
		result.Outcome = OutcomeSkipped
		result.Reason = ReasonNoSiteConfig
		return result
	}
	if !site.Rotatable() {
		result.Outcome = OutcomeSkipped
		result.Reason = ReasonMFARequired
		return result
	}

	runner := browser.NewRunner(r.Page)

	// Login.
	if err := r.Page.Navigate(ctx, site.Login.URL); err != nil {
		return failed(result, ReasonLoginFailed, err)
	}
	loginValues := browser.Values{
		Username:    username,
		Password:    string(oldSecret),
		OldPassword: string(oldSecret),
	}
	if err := runner.Run(ctx, site.Login.Steps, loginValues); err != nil {
		return failed(result, ReasonLoginFailed, err)
	}

	// The change sequence mutates live site state irreversibly; record
	// the old secret first so the operator can always recover.
	if err := r.History.Append(ctx, cred.ID, oldSecret); err != nil {
		return failed(result, "history_write_failed", err)
	}

	// NavigateChange + ChangeSteps.
	if err := r.Page.Navigate(ctx, site.ChangePassword.URL); err != nil {
		return failed(result, ReasonChangeFailed, err)
	}
	changeValues := browser.Values{
		Username:    username,
		OldPassword: string(oldSecret),
		NewPassword: newPassword,
	}
	if err := runner.Run(ctx, site.ChangePassword.Steps, changeValues); err != nil {
		return failed(result, ReasonChangeFailed, err)
	}

	// PersistHistory: confirm the new secret vault-side.
	if err := r.persistVault(ctx, entry, newPassword); err != nil {
		return failed(result, ReasonVaultUpdate, err)
	}

	log.Info("Credential rotated",
		zap.String("credential", cred.Name),
		zap.String("new_password", crypto.Redact(newPassword)))
	result.Outcome = OutcomeSuccess
	return result
}

// persistVault replaces the stored secret. The daemon's update command
// is preferred; daemons that predate it get the delete+create
// compatibility fallback, which preserves name/username/url.
func (r *Rotator) persistVault(ctx context.Context, entry *vaultd.Entry, newPassword string) error {
	err := r.Vault.Update(ctx, entry.ID, []byte(newPassword))
	if err == nil {
		return nil
	}
	if !vaultd.IsUnknownCommand(err) {
		return err
	}

	otelzap.Ctx(ctx).Warn("Daemon lacks update support, falling back to delete+create",
		zap.String("credential_id", entry.ID))

	if err := r.Vault.Delete(ctx, entry.ID); err != nil {
		return cerr.Wrap(err, "fallback delete")
	}
	_, err = r.Vault.Create(ctx, vaultd.NewEntry{
		Category:  vaultd.CategoryAuthentication,
		EntryType: vaultd.EntryTypePassword,
		Name:      entry.Name,
		Value:     crypto.EncodeSecret([]byte(newPassword)),
		Username:  entry.Username,
		URL:       entry.URL,
	})
	if err != nil {
		return cerr.Wrap(err, "fallback create")
	}
	return nil
}

func failed(result Result, reason string, err error) Result {
	result.Outcome = OutcomeFailed
	result.Reason = reason
	result.Err = err
	return result
}
