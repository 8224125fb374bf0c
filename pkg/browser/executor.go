// pkg/browser/executor.go
//
// Interprets a site configuration's ordered step list against a live
// page. Steps are not idempotent-safe, so execution stops on the first
// failure and the caller decides whether to retry the whole sequence.

package browser

import (
	"context"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultStepTimeout bounds one fill or click interaction.
const DefaultStepTimeout = 10 * time.Second

// Page is the opaque browser capability the executor drives. The
// production implementation is chromedp-backed; tests script a fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
}

// Values are the placeholder substitutions for one step sequence.
type Values struct {
	Username    string
	Password    string
	OldPassword string
	NewPassword string
}

// resolve substitutes every recognized placeholder in a template.
// Templates are never executed with placeholders left unresolved; the
// site directory rejects unknown placeholder names at load time.
func (v Values) resolve(template string) string {
	r := strings.NewReplacer(
		"{username}", v.Username,
		"{password}", v.Password,
		"{old_password}", v.OldPassword,
		"{new_password}", v.NewPassword,
	)
	return r.Replace(template)
}

// Runner executes step sequences against one page.
type Runner struct {
	Page        Page
	StepTimeout time.Duration
}

// NewRunner wraps a page with the default interaction timeout.
func NewRunner(page Page) *Runner {
	return &Runner{Page: page, StepTimeout: DefaultStepTimeout}
}

// Run executes steps strictly in order. The first failing step aborts
// the sequence. Wait steps suspend this flow only; they respect the
// caller's context so an operator interrupt is serviced promptly.
func (r *Runner) Run(ctx context.Context, steps []sites.Step, values Values) error {
	log := otelzap.Ctx(ctx)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Debug("Executing step",
			zap.Int("step", i+1),
			zap.String("kind", string(step.Kind)),
			zap.String("selector", step.Selector))

		if err := r.runStep(ctx, step, values); err != nil {
			return cerr.Wrapf(err, "step %d (%s %s)", i+1, step.Kind, step.Selector)
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step sites.Step, values Values) error {
	switch step.Kind {
	case sites.StepFill:
		stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout())
		defer cancel()
		return r.Page.Fill(stepCtx, step.Selector, values.resolve(step.Value))
	case sites.StepClick:
		stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout())
		defer cancel()
		return r.Page.Click(stepCtx, step.Selector)
	case sites.StepWait:
		timer := time.NewTimer(step.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return cerr.Newf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) stepTimeout() time.Duration {
	if r.StepTimeout > 0 {
		return r.StepTimeout
	}
	return DefaultStepTimeout
}
