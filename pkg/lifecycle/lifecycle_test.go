package lifecycle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
)

func TestNotReadyBeforeStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("should not be ready before WaitForStartup")
	}
}

func TestStartupHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(lifecycle.Hook{
			Name:     "counter",
			Required: true,
			Run: func(context.Context) error {
				count.Add(1)
				return nil
			},
		})
	}

	lc.WaitForStartup()

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
	if !lc.Ready() {
		t.Error("should be ready after successful hooks")
	}
}

func TestRequiredHookFailureBlocksReadiness(t *testing.T) {
	lc := lifecycle.New()
	lc.OnStartup(lifecycle.Hook{
		Name:     "database",
		Required: true,
		Run:      func(context.Context) error { return errors.New("ping failed") },
	})

	lc.WaitForStartup()

	if lc.Ready() {
		t.Error("should not be ready when a required hook fails")
	}
	if _, ok := lc.Failures()["database"]; !ok {
		t.Error("failure for database hook not recorded")
	}
}

func TestOptionalHookFailureKeepsReadiness(t *testing.T) {
	lc := lifecycle.New()
	lc.OnStartup(lifecycle.Hook{
		Name: "cache",
		Run:  func(context.Context) error { return errors.New("redis unavailable") },
	})

	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("optional hook failure should not block readiness")
	}
	if _, ok := lc.Failures()["cache"]; !ok {
		t.Error("failure for cache hook not recorded")
	}
}

func TestShutdownHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error, got nil")
	}
}
