// pkg/rotation/runner.go

package rotation

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/sites"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultPause is the fixed inter-credential delay. Target sites are
// rate-sensitive; this is a deliberate throttle, not a performance
// limitation.
const DefaultPause = time.Second

// Runner feeds a filtered credential list through the rotator one at a
// time, aggregating outcomes.
type Runner struct {
	Rotator   *Rotator
	Directory *sites.Directory
	Pause     time.Duration
}

func (r *Runner) pause() time.Duration {
	if r.Pause > 0 {
		return r.Pause
	}
	return DefaultPause
}

// RotateAll processes every credential sequentially. Credentials with no
// matching site configuration are reported as skipped, not errors. The
// run services cancellation between credentials; per-credential failures
// never abort the batch.
func (r *Runner) RotateAll(ctx context.Context, creds []Credential) Summary {
	log := otelzap.Ctx(ctx)
	var summary Summary

	for i, cred := range creds {
		if err := ctx.Err(); err != nil {
			log.Warn("Run cancelled",
				zap.Int("processed", i), zap.Int("remaining", len(creds)-i))
			break
		}

		site, _ := r.Directory.Resolve(cred.URL)
		if site == nil {
			// URL resolution can miss when the entry has no URL; fall
			// back to the display name.
			site, _ = r.Directory.Resolve(cred.Name)
		}

		result := r.Rotator.Rotate(ctx, cred, site)
		summary.add(result)

		log.Info("Credential processed",
			zap.String("credential", cred.Name),
			zap.String("outcome", result.Outcome.String()),
			zap.String("reason", result.Reason))

		if i < len(creds)-1 {
			select {
			case <-time.After(r.pause()):
			case <-ctx.Done():
			}
		}
	}
	return summary
}
