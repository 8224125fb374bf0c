// pkg/sites/directory_test.go

package sites

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirectory() *Directory {
	return NewDirectory(map[string]*Site{
		"mail": {
			Name:    "Example Mail",
			Domains: []string{"mail.example.com"},
			Login: &Flow{
				URL: "https://mail.example.com/login",
				Steps: []Step{
					{Kind: StepFill, Selector: "#user", Value: "{username}"},
					{Kind: StepFill, Selector: "#pass", Value: "{password}"},
					{Kind: StepClick, Selector: "#submit"},
				},
			},
			ChangePassword: &Flow{
				URL: "https://mail.example.com/settings/password",
				Steps: []Step{
					{Kind: StepFill, Selector: "#old", Value: "{old_password}"},
					{Kind: StepFill, Selector: "#new", Value: "{new_password}"},
					{Kind: StepClick, Selector: "#save"},
				},
			},
		},
		"bank": {
			Name:    "Big Bank",
			Domains: []string{"bank.example", "bigbank.example"},
			Login: &Flow{
				URL:   "https://bank.example/login",
				Steps: []Step{{Kind: StepClick, Selector: "#sso"}},
			},
			ChangePassword: &Flow{
				URL:         "https://bank.example/security",
				Steps:       []Step{{Kind: StepClick, Selector: "#change"}},
				RequiresMFA: true,
			},
		},
	})
}

func TestResolve_ByURL(t *testing.T) {
	dir := testDirectory()

	tests := []struct {
		identifier string
		wantKey    string
		wantFound  bool
	}{
		{"https://mail.example.com/inbox", "mail", true},
		{"https://www.mail.example.com", "mail", true}, // www stripped
		{"https://m.bank.example/home", "bank", true},  // subdomain tolerated
		{"mail.example.com", "mail", true},             // bare hostname
		{"https://unknown.example.net", "", false},
	}
	for _, tt := range tests {
		site, found := dir.Resolve(tt.identifier)
		assert.Equal(t, tt.wantFound, found, tt.identifier)
		if tt.wantFound {
			assert.Equal(t, tt.wantKey, site.Key, tt.identifier)
		}
	}
}

func TestResolve_ByName(t *testing.T) {
	dir := testDirectory()

	site, found := dir.Resolve("bank")
	require.True(t, found)
	assert.Equal(t, "bank", site.Key)

	site, found = dir.Resolve("Big Bank")
	require.True(t, found)
	assert.Equal(t, "bank", site.Key)

	// Substring against display name.
	site, found = dir.Resolve("Mail")
	require.True(t, found)
	assert.Equal(t, "mail", site.Key)

	_, found = dir.Resolve("no such site")
	assert.False(t, found)

	_, found = dir.Resolve("")
	assert.False(t, found)
}

func TestMatchDomain_OverMatchBoundary(t *testing.T) {
	// The bidirectional substring policy is permissive on purpose; these
	// cases pin down where the boundary sits.
	assert.True(t, MatchDomain("mail.example.com", "mail.example.com"))
	assert.True(t, MatchDomain("m.bank.example", "bank.example"))
	assert.True(t, MatchDomain("bank.example", "m.bank.example")) // reversed direction
	assert.True(t, MatchDomain("anything-with-x.net", "x"))       // short fragment over-match
	assert.False(t, MatchDomain("bank.example", "mail.example.com"))
	assert.False(t, MatchDomain("", "bank.example"))
	assert.False(t, MatchDomain("bank.example", ""))
}

func TestLoad_FromYAML(t *testing.T) {
	doc := `
sites:
  forge:
    name: Code Forge
    domains: [forge.example.org]
    login:
      url: https://forge.example.org/login
      steps:
        - fill: "#login_field"
          value: "{username}"
        - fill: "#password"
          value: "{password}"
        - click: "input[type=submit]"
    change_password:
      url: https://forge.example.org/settings/security
      requires_mfa: true
      steps:
        - fill: "#old"
          value: "{old_password}"
        - wait: 2s
        - click: "#save"
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	dir, err := Load(context.Background(), path)
	require.NoError(t, err)

	site, ok := dir.Get("forge")
	require.True(t, ok)
	assert.Equal(t, "Code Forge", site.Name)
	require.Len(t, site.Login.Steps, 3)
	assert.Equal(t, StepFill, site.Login.Steps[0].Kind)
	assert.Equal(t, "{username}", site.Login.Steps[0].Value)
	assert.Equal(t, StepClick, site.Login.Steps[2].Kind)

	require.NotNil(t, site.ChangePassword)
	assert.True(t, site.ChangePassword.RequiresMFA)
	assert.False(t, site.Rotatable())
	assert.Equal(t, StepWait, site.ChangePassword.Steps[1].Kind)
	assert.Equal(t, 2*time.Second, site.ChangePassword.Steps[1].Duration)
}

func TestLoad_RejectsAmbiguousStep(t *testing.T) {
	doc := `
sites:
  broken:
    name: Broken
    domains: [broken.example]
    login:
      url: https://broken.example/login
      steps:
        - fill: "#user"
          click: "#submit"
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

// A misspelled placeholder must fail at load time: if it reached a
// browser it would be typed into the site's password field verbatim
// while the vault receives the real generated secret.
func TestLoad_RejectsUnknownPlaceholder(t *testing.T) {
	doc := `
sites:
  typo:
    name: Typo
    domains: [typo.example]
    login:
      url: https://typo.example/login
      steps:
        - fill: "#user"
          value: "{username}"
        - fill: "#pass"
          value: "{password}"
    change_password:
      url: https://typo.example/settings
      steps:
        - fill: "#new"
          value: "{new_pasword}"
        - click: "#save"
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestValidate(t *testing.T) {
	dir := testDirectory()
	assert.NoError(t, dir.Validate())

	bad := NewDirectory(map[string]*Site{
		"empty-selector": {
			Name:    "Bad",
			Domains: []string{"bad.example"},
			Login: &Flow{
				URL:   "https://bad.example/login",
				Steps: []Step{{Kind: StepFill, Value: "{username}"}},
			},
		},
	})
	assert.Error(t, bad.Validate())

	unknownKind := NewDirectory(map[string]*Site{
		"odd": {
			Name:    "Odd",
			Domains: []string{"odd.example"},
			Login: &Flow{
				URL:   "https://odd.example/login",
				Steps: []Step{{Kind: StepKind("hover"), Selector: "#x"}},
			},
		},
	})
	assert.Error(t, unknownKind.Validate())

	badPlaceholder := NewDirectory(map[string]*Site{
		"typo": {
			Name:    "Typo",
			Domains: []string{"typo.example"},
			Login: &Flow{
				URL:   "https://typo.example/login",
				Steps: []Step{{Kind: StepFill, Selector: "#user", Value: "{usrename}"}},
			},
		},
	})
	assert.Error(t, badPlaceholder.Validate())

	missingLogin := NewDirectory(map[string]*Site{
		"nologin": {
			Name:    "No Login",
			Domains: []string{"nologin.example"},
		},
	})
	assert.Error(t, missingLogin.Validate())
}
