package server_test

import (
	"context"
	"testing"

	"github.com/michaelbrown/podmirror/internal/server"
)

func TestRunManagerBeginEnd(t *testing.T) {
	rm := server.NewRunManager()

	ctx := rm.Begin("run-1", context.Background())
	if rm.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", rm.Count())
	}
	if ctx.Err() != nil {
		t.Fatalf("fresh run context already done: %v", ctx.Err())
	}

	rm.End("run-1")
	if rm.Count() != 0 {
		t.Errorf("Count() = %d after End, want 0", rm.Count())
	}
	if ctx.Err() == nil {
		t.Error("run context should be cancelled after End")
	}
}

func TestRunManagerCancel(t *testing.T) {
	rm := server.NewRunManager()

	ctx := rm.Begin("run-1", context.Background())
	if !rm.Cancel("run-1") {
		t.Fatal("Cancel(run-1) = false, want true")
	}
	<-ctx.Done()

	if rm.Cancel("unknown") {
		t.Error("Cancel(unknown) = true, want false")
	}

	// End after Cancel is safe.
	rm.End("run-1")
}

func TestRunManagerCancelAll(t *testing.T) {
	rm := server.NewRunManager()

	a := rm.Begin("a", context.Background())
	b := rm.Begin("b", context.Background())
	rm.CancelAll()

	<-a.Done()
	<-b.Done()
	if rm.Count() != 0 {
		t.Errorf("Count() = %d after CancelAll, want 0", rm.Count())
	}
}
