// pkg/rotation/runner_test.go

package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/vaultd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T, vault *fakeVault, page *fakePage) *Runner {
	t.Helper()
	dir := sites.NewDirectory(map[string]*sites.Site{
		"mail": testSite(),
	})
	return &Runner{
		Rotator:   newRotator(t, vault, page),
		Directory: dir,
		Pause:     time.Millisecond,
	}
}

func TestRotateAll_MixedOutcomes(t *testing.T) {
	vault := newFakeVault()
	vault.entries["c1"] = &vaultd.Entry{ID: "c1", Name: "Mail", Username: "a@x.com", Value: []byte("old1")}
	vault.entries["c2"] = &vaultd.Entry{ID: "c2", Name: "Obscure", Value: []byte("old2")}
	page := &fakePage{}
	runner := testRunner(t, vault, page)

	creds := []Credential{
		{ID: "c1", Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com"},
		{ID: "c2", Name: "Obscure", URL: "https://nowhere.example.net"},
	}

	summary := runner.RotateAll(context.Background(), creds)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, ReasonNoSiteConfig, summary.Results[1].Reason)
}

func TestRotateAll_FailureDoesNotAbortBatch(t *testing.T) {
	vault := newFakeVault()
	vault.entries["c1"] = &vaultd.Entry{ID: "c1", Name: "Mail", Value: []byte("old1")}
	vault.entries["c2"] = &vaultd.Entry{ID: "c2", Name: "Mail Two", Value: []byte("old2")}
	// Every login click fails; both credentials resolve to the same site.
	page := &fakePage{failSelector: "#submit"}
	runner := testRunner(t, vault, page)

	creds := []Credential{
		{ID: "c1", Name: "Mail", URL: "https://mail.example.com"},
		{ID: "c2", Name: "Mail Two", URL: "https://mail.example.com"},
	}

	summary := runner.RotateAll(context.Background(), creds)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Results, 2, "second credential must still be attempted")
}

func TestRotateAll_CancelledBetweenCredentials(t *testing.T) {
	vault := newFakeVault()
	vault.entries["c1"] = &vaultd.Entry{ID: "c1", Name: "Mail", Value: []byte("old1")}
	runner := testRunner(t, vault, &fakePage{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := runner.RotateAll(ctx, []Credential{
		{ID: "c1", Name: "Mail", URL: "https://mail.example.com"},
	})
	assert.Empty(t, summary.Results)
}

func TestRotateAll_ResolvesByNameWhenURLMissing(t *testing.T) {
	vault := newFakeVault()
	vault.entries["c1"] = &vaultd.Entry{ID: "c1", Name: "Example Mail", Value: []byte("old1")}
	runner := testRunner(t, vault, &fakePage{})

	summary := runner.RotateAll(context.Background(), []Credential{
		{ID: "c1", Name: "Example Mail"},
	})
	require.Len(t, summary.Results, 1)
	assert.Equal(t, OutcomeSuccess, summary.Results[0].Outcome)
}
