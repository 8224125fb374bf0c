// pkg/browser/chromedp.go
//
// chromedp-backed Page implementation. One Session owns one browser
// profile for the duration of a run; it is never shared across
// concurrent step executions.

package browser

import (
	"context"

	"github.com/chromedp/chromedp"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Session is a live browser backed by a headless-capable Chrome.
type Session struct {
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context
	log         *zap.Logger
}

// SessionOptions configure browser startup.
type SessionOptions struct {
	// Headless runs Chrome without a visible window. Rotation runs
	// usually want headful so the operator can watch; dry runs and CI
	// want headless.
	Headless bool

	// UserDataDir points Chrome at a persistent profile so that sites
	// with remembered sessions behave as they do for the operator.
	UserDataDir string
}

// NewSession launches a browser.
func NewSession(ctx context.Context, opts SessionOptions, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts,
			chromedp.Flag("headless", false),
			chromedp.Flag("hide-scrollbars", false),
			chromedp.Flag("mute-audio", false),
		)
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so a missing Chrome binary fails
	// the run before any vault state is touched.
	if err := chromedp.Run(browserCtx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, cerr.Wrap(err, "launch browser")
	}

	log.Info("Browser session started", zap.Bool("headless", opts.Headless))
	return &Session{
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		browserCtx:  browserCtx,
		log:         log,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.ctxCancel()
	s.allocCancel()
	s.log.Info("Browser session closed")
	return nil
}

// Navigate loads a URL and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

// Fill waits for the target field, clears it, and types the value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector),
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, value),
	)
}

// Click waits for the target control and activates it.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector),
		chromedp.Click(selector),
	)
}

// run executes chromedp actions under the caller's deadline while
// keeping the long-lived browser context alive.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeDeadline(s.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeDeadline derives a context from the browser context that also
// honors the caller's deadline and cancellation.
func mergeDeadline(browserCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := callerCtx.Deadline(); ok {
		runCtx, cancel := context.WithDeadline(browserCtx, deadline)
		stop := context.AfterFunc(callerCtx, cancel)
		return runCtx, func() { stop(); cancel() }
	}
	runCtx, cancel := context.WithCancel(browserCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() { stop(); cancel() }
}
