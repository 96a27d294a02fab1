package session

import (
	"sync"
	"sync/atomic"
)

// Controller is the shared cooperative cancellation signal. Signal handlers
// and timers only call Cancel; the engine polls Cancelled or selects on Done.
type Controller struct {
	once      sync.Once
	done      chan struct{}
	cancelled atomic.Bool
}

// NewController returns an untriggered controller.
func NewController() *Controller {
	return &Controller{done: make(chan struct{})}
}

// Cancel raises the signal. It reports true only for the call that raised
// it; later calls are no-ops.
func (c *Controller) Cancel() bool {
	triggered := false

	c.once.Do(func() {
		c.cancelled.Store(true)
		close(c.done)

		triggered = true
	})

	return triggered
}

// Cancelled reports whether Cancel has been called.
func (c *Controller) Cancelled() bool {
	return c.cancelled.Load()
}

// Done is closed when Cancel is first called.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}
