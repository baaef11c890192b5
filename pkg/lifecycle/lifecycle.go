// Package lifecycle coordinates startup and shutdown of long-lived subsystems.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Hook is a named startup function. Required hooks that fail keep the
// coordinator from reporting ready; optional hook failures are only recorded.
type Hook struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) error
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup

	mu       sync.RWMutex
	ready    bool
	failures map[string]error
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		failures: make(map[string]error),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs the hook concurrently and records its outcome.
func (c *Coordinator) OnStartup(h Hook) {
	c.startupWg.Go(func() {
		if err := h.Run(c.ctx); err != nil {
			c.mu.Lock()
			c.failures[h.Name] = fmt.Errorf("%s: %w", h.Name, err)
			if !h.Required {
				c.failures[h.Name] = optionalFailure{c.failures[h.Name]}
			}
			c.mu.Unlock()
		}
	})
}

// OnShutdown registers a function to run concurrently during shutdown.
// Shutdown hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// Ready reports whether startup finished without a required hook failing.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return false
	}
	for _, err := range c.failures {
		if _, ok := err.(optionalFailure); !ok {
			return false
		}
	}
	return true
}

// Failures returns the startup errors recorded so far, keyed by hook name.
func (c *Coordinator) Failures() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]error, len(c.failures))
	for k, v := range c.failures {
		out[k] = v
	}
	return out
}

// WaitForStartup blocks until all startup hooks have completed.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
}

// Shutdown cancels the context and waits for shutdown hooks to complete
// within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

type optionalFailure struct{ error }

func (o optionalFailure) Unwrap() error { return o.error }
