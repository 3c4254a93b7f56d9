package cli

import (
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler()
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before any signal")
	default:
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Skipf("cannot signal self: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Error("context not cancelled after SIGTERM")
	}
}

func TestSetupSignalHandlerStop(t *testing.T) {
	ctx, stop := SetupSignalHandler()
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("stop() did not cancel the context")
	}
}
