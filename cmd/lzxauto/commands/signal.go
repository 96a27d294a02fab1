package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/session"
)

// notifyCancel triggers ctrl on SIGINT or SIGTERM. The returned function
// stops listening.
func notifyCancel(ctrl *session.Controller, logger *slog.Logger) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	stop := cancelOnSignal(sigs, ctrl, logger)

	return func() {
		signal.Stop(sigs)
		stop()
	}
}

// cancelOnSignal cancels ctrl on the first value from sigs. Later signals
// are ignored while in-flight files finish.
func cancelOnSignal(sigs <-chan os.Signal, ctrl *session.Controller, logger *slog.Logger) func() {
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigs:
				if ctrl.Cancel() {
					logger.Log(context.Background(), observability.LevelGeneral,
						"cancellation requested, finishing in-flight files", slog.String("signal", sig.String()))
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

// cancelAfter triggers ctrl once d has elapsed. Zero or negative d disables
// the cap. The returned function stops the timer.
func cancelAfter(d time.Duration, ctrl *session.Controller, logger *slog.Logger) func() {
	if d <= 0 {
		return func() {}
	}

	timer := time.AfterFunc(d, func() {
		if ctrl.Cancel() {
			logger.Log(context.Background(), observability.LevelGeneral,
				"maximum run duration reached, finishing in-flight files", slog.Duration("max_duration", d))
		}
	})

	return func() { timer.Stop() }
}
