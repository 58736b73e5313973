package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal calls onForce, which by default exits with 130.
// The returned stop function releases the signal handlers.
func NotifyContext(parent context.Context, onForce func()) (context.Context, context.CancelFunc) {
	if onForce == nil {
		onForce = func() { os.Exit(130) }
	}
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			cancel()
		case <-done:
			return
		}
		select {
		case <-ch:
			onForce()
		case <-done:
		}
	}()

	stop := func() {
		signal.Stop(ch)
		select {
		case <-done:
		default:
			close(done)
		}
		cancel()
	}
	return ctx, stop
}
