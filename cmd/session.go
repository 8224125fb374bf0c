// cmd/session.go

package cmd

import (
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_err"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/kyklos_io"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
)

// PassphraseEnvVar lets unattended runs supply the vault passphrase
// without a terminal.
const PassphraseEnvVar = "KYKLOS_PASSPHRASE"

// openVault dials the daemon socket and returns a connected client. The
// vault may still be locked; use unlockVault when the command needs
// secrets.
func openVault(rc *kyklos_io.RuntimeContext) (*vaultd.Client, error) {
	client, err := vaultd.Dial(rc.Ctx, settings.SocketPath, rc.Log)
	if err != nil {
		if cerr.Is(err, vaultd.ErrVaultUnavailable) {
			return nil, kyklos_err.NewExpectedError(
				cerr.Wrapf(err, "vault daemon not reachable at %s (is pandora vaultd running?)", settings.SocketPath))
		}
		return nil, err
	}
	return client, nil
}

// unlockVault ensures the daemon is unlocked, prompting for the
// passphrase if it is not in the environment. Returns true when this
// call performed the unlock, so the caller knows to lock again on exit.
func unlockVault(rc *kyklos_io.RuntimeContext, client *vaultd.Client) (bool, error) {
	status, err := client.Status(rc.Ctx)
	if err != nil {
		return false, cerr.Wrap(err, "query vault status")
	}
	if !status.VaultExists {
		return false, kyklos_err.NewExpectedError(cerr.New("no vault exists yet; create one with pandora first"))
	}
	if status.Unlocked {
		return false, nil
	}

	passphrase, err := kyklos_io.ResolvePassphrase(PassphraseEnvVar)
	if err != nil {
		return false, err
	}
	if err := client.Unlock(rc.Ctx, passphrase); err != nil {
		if cerr.Is(err, vaultd.ErrAuthFailed) {
			return false, kyklos_err.NewExpectedError(cerr.New("vault passphrase rejected"))
		}
		return false, err
	}
	rc.Log.Info("🔓 Vault unlocked")
	return true, nil
}

// relockVault is the deferred counterpart of unlockVault.
func relockVault(rc *kyklos_io.RuntimeContext, client *vaultd.Client, weUnlocked bool) {
	if !weUnlocked {
		return
	}
	if err := client.Lock(rc.Ctx); err != nil {
		rc.Log.Warn("Failed to re-lock vault", zap.Error(err))
		return
	}
	rc.Log.Info("🔒 Vault locked")
}
