// pkg/sites/validate.go
//
// Static validation of a site directory before any browser session is
// opened. A configuration rejected here never reaches the executor.

package sites

import (
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// knownPlaceholders are the only substitutions the executor resolves.
var knownPlaceholders = map[string]struct{}{
	"username":     {},
	"password":     {},
	"old_password": {},
	"new_password": {},
}

// Validate checks every site in the directory. All problems are
// collected so the operator sees the full picture in one pass.
func (d *Directory) Validate() error {
	var errs error
	for _, site := range d.Sites() {
		if err := ValidateSite(site); err != nil {
			errs = cerr.CombineErrors(errs, cerr.Wrapf(err, "site %q", site.Key))
		}
	}
	return errs
}

// ValidateSite checks one site configuration: struct tags, then
// step-level invariants the tags cannot express.
func ValidateSite(site *Site) error {
	if err := validate.Struct(site); err != nil {
		return err
	}

	var errs error
	errs = cerr.CombineErrors(errs, validateFlow("login", site.Login))
	if site.ChangePassword != nil {
		errs = cerr.CombineErrors(errs, validateFlow("change_password", site.ChangePassword))
	}
	return errs
}

func validateFlow(name string, flow *Flow) error {
	if flow == nil {
		return nil
	}
	var errs error
	for i, step := range flow.Steps {
		if err := validateStep(step); err != nil {
			errs = cerr.CombineErrors(errs, cerr.Wrapf(err, "%s step %d", name, i+1))
		}
	}
	return errs
}

func validateStep(step Step) error {
	switch step.Kind {
	case StepFill:
		if step.Selector == "" {
			return cerr.New("fill step requires a selector")
		}
		if step.Value == "" {
			return cerr.New("fill step requires a value template")
		}
		return validatePlaceholders(step.Value)
	case StepClick:
		if step.Selector == "" {
			return cerr.New("click step requires a selector")
		}
		return nil
	case StepWait:
		if step.Duration <= 0 {
			return cerr.New("wait step requires a positive duration")
		}
		return nil
	default:
		return cerr.Newf("unknown step kind %q", step.Kind)
	}
}

// validatePlaceholders rejects templates referencing placeholders the
// executor would leave unresolved.
func validatePlaceholders(template string) error {
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			return nil
		}
		closing := strings.Index(rest[open:], "}")
		if closing < 0 {
			return nil
		}
		name := rest[open+1 : open+closing]
		if _, ok := knownPlaceholders[name]; !ok {
			return cerr.Newf("unknown placeholder {%s}", name)
		}
		rest = rest[open+closing+1:]
	}
}
