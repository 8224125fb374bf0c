// pkg/sites/types.go
//
// Declarative site configurations: how to log in to and change the
// password on one site. Pure data, loaded once per run and immutable
// afterwards. Steps are tagged variants so a configuration file can be
// validated before any browser session is opened.

package sites

import (
	"time"

	cerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// StepKind discriminates the step variants.
type StepKind string

const (
	StepFill  StepKind = "fill"
	StepClick StepKind = "click"
	StepWait  StepKind = "wait"
)

// Step is one atomic browser action. Exactly one variant is populated:
// fill carries a selector and a value template, click a selector, wait a
// duration.
type Step struct {
	Kind     StepKind
	Selector string
	Value    string
	Duration time.Duration
}

// stepDoc is the YAML shape of a step:
//
//	- fill: "#username"
//	  value: "{username}"
//	- click: "button[type=submit]"
//	- wait: 2s
type stepDoc struct {
	Fill  string `yaml:"fill,omitempty"`
	Click string `yaml:"click,omitempty"`
	Wait  string `yaml:"wait,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// UnmarshalYAML decodes the tagged-variant form.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var doc stepDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}

	set := 0
	if doc.Fill != "" {
		set++
	}
	if doc.Click != "" {
		set++
	}
	if doc.Wait != "" {
		set++
	}
	if set != 1 {
		return cerr.Newf("step must have exactly one of fill/click/wait, got %d", set)
	}

	switch {
	case doc.Fill != "":
		s.Kind = StepFill
		s.Selector = doc.Fill
		s.Value = doc.Value
	case doc.Click != "":
		s.Kind = StepClick
		s.Selector = doc.Click
	case doc.Wait != "":
		d, err := time.ParseDuration(doc.Wait)
		if err != nil {
			return cerr.Wrapf(err, "invalid wait duration %q", doc.Wait)
		}
		s.Kind = StepWait
		s.Duration = d
	}
	return nil
}

// MarshalYAML re-emits the tagged-variant form.
func (s Step) MarshalYAML() (interface{}, error) {
	switch s.Kind {
	case StepFill:
		return stepDoc{Fill: s.Selector, Value: s.Value}, nil
	case StepClick:
		return stepDoc{Click: s.Selector}, nil
	case StepWait:
		return stepDoc{Wait: s.Duration.String()}, nil
	}
	return nil, cerr.Newf("unknown step kind %q", s.Kind)
}

// Flow is an ordered step sequence against one URL.
type Flow struct {
	URL         string `yaml:"url" validate:"required,url"`
	Steps       []Step `yaml:"steps" validate:"required,min=1"`
	RequiresMFA bool   `yaml:"requires_mfa"`
}

// Site describes one target site. ChangePassword may be absent for
// sites that only support manual password changes.
type Site struct {
	Key            string   `yaml:"-"`
	Name           string   `yaml:"name" validate:"required"`
	Domains        []string `yaml:"domains" validate:"required,min=1,dive,required"`
	Login          *Flow    `yaml:"login" validate:"required"`
	ChangePassword *Flow    `yaml:"change_password"`
}

// Rotatable reports whether automated rotation is even attemptable:
// there must be change-password steps and no MFA gate.
func (s *Site) Rotatable() bool {
	return s.ChangePassword != nil && !s.ChangePassword.RequiresMFA
}
