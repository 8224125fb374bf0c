// pkg/rotation/result.go

package rotation

// Outcome classifies one credential's rotation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Closed set of skip/failure reasons surfaced in the run summary.
const (
	ReasonFetchFailed  = "fetch_failed"
	ReasonLoginFailed  = "login_failed"
	ReasonChangeFailed = "change_failed"
	ReasonMFARequired  = "mfa_required"
	ReasonNoSiteConfig = "no_site_config"
	ReasonVaultUpdate  = "vault_update_failed"
)

// Credential identifies one vault entry to rotate. The secret itself is
// fetched inside the state machine, never carried here.
type Credential struct {
	ID       string
	Name     string
	URL      string
	Username string
}

// Result is one credential's tagged outcome. Never retained beyond the
// run's console output.
type Result struct {
	Credential Credential
	Outcome    Outcome
	Reason     string // set for skipped/failed
	DryRun     bool
	// NewPassword is populated only for dry runs, where displaying the
	// generated password is the whole point.
	NewPassword string
	Err         error
}

// Summary aggregates a run.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Results   []Result
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
