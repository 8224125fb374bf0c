// pkg/kyklos_cli/signals.go
//
// Signal handling and graceful shutdown for long-running rotation runs.

package kyklos_cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CleanupFunc is a function that performs cleanup operations.
type CleanupFunc func() error

// SignalHandler cancels its context on SIGINT/SIGTERM and runs registered
// cleanup functions in reverse order. A rotation run registers the
// browser session and the vault connection here so that an operator
// interrupt closes both cleanly.
type SignalHandler struct {
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
	cleanupFuncs []CleanupFunc
	sigChan      chan os.Signal
	once         sync.Once
}

// NewSignalHandler creates a signal handler derived from ctx.
func NewSignalHandler(ctx context.Context) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)

	h := &SignalHandler{
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)
	go h.handleSignals()
	return h
}

// RegisterCleanup adds a cleanup function; cleanups run LIFO.
func (h *SignalHandler) RegisterCleanup(cleanup CleanupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFuncs = append(h.cleanupFuncs, cleanup)
}

// Context returns the cancellable context. Operations use this context
// to detect an interrupt between stages.
func (h *SignalHandler) Context() context.Context {
	return h.ctx
}

// Stop detaches from signals, cancels the context and runs cleanups.
// Safe to call more than once.
func (h *SignalHandler) Stop() {
	h.once.Do(func() {
		signal.Stop(h.sigChan)
		h.cancel()
		h.runCleanups()
	})
}

func (h *SignalHandler) handleSignals() {
	select {
	case sig := <-h.sigChan:
		log := otelzap.Ctx(h.ctx)
		log.Warn("Received signal, shutting down", zap.String("signal", sig.String()))
		h.Stop()
	case <-h.ctx.Done():
	}
}

func (h *SignalHandler) runCleanups() {
	h.mu.Lock()
	funcs := make([]CleanupFunc, len(h.cleanupFuncs))
	copy(funcs, h.cleanupFuncs)
	h.mu.Unlock()

	log := otelzap.Ctx(context.Background())
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			log.Warn("Cleanup failed", zap.Error(err))
		}
	}
}
