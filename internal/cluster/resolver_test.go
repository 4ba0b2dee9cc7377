package cluster_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/michaelbrown/podmirror/internal/cluster"
)

// fakeKubectl writes an executable shell script standing in for kubectl.
func fakeKubectl(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubectl")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveReturnsFirstPod(t *testing.T) {
	bin := fakeKubectl(t, `printf 'checkout-7f9'`)
	r := cluster.NewResolver(bin, 5*time.Second)

	target, err := r.Resolve(context.Background(), "checkout", "default")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if target.Pod != "checkout-7f9" {
		t.Errorf("Pod = %q, want %q", target.Pod, "checkout-7f9")
	}
	if target.Namespace != "default" {
		t.Errorf("Namespace = %q, want %q", target.Namespace, "default")
	}
	if target.Path() != "pod/checkout-7f9" {
		t.Errorf("Path() = %q, want %q", target.Path(), "pod/checkout-7f9")
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	bin := fakeKubectl(t, `printf 'api-1234\n'`)
	r := cluster.NewResolver(bin, 5*time.Second)

	target, err := r.Resolve(context.Background(), "api", "default")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if target.Pod != "api-1234" {
		t.Errorf("Pod = %q, want %q", target.Pod, "api-1234")
	}
}

func TestResolveNoPods(t *testing.T) {
	bin := fakeKubectl(t, `exit 0`)
	r := cluster.NewResolver(bin, 5*time.Second)

	_, err := r.Resolve(context.Background(), "missing", "default")
	var resErr *cluster.ResolveError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve() error = %v, want *ResolveError", err)
	}
	if resErr.Kind != cluster.NotFound {
		t.Errorf("Kind = %v, want NotFound", resErr.Kind)
	}
}

func TestResolveQueryFailed(t *testing.T) {
	bin := fakeKubectl(t, `echo 'error: the server could not find the requested resource' >&2; exit 1`)
	r := cluster.NewResolver(bin, 5*time.Second)

	_, err := r.Resolve(context.Background(), "checkout", "default")
	var resErr *cluster.ResolveError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve() error = %v, want *ResolveError", err)
	}
	if resErr.Kind != cluster.QueryFailed {
		t.Errorf("Kind = %v, want QueryFailed", resErr.Kind)
	}
	if resErr.Stderr == "" {
		t.Error("Stderr not captured from kubectl")
	}
}

func TestResolveTimeout(t *testing.T) {
	bin := fakeKubectl(t, `sleep 10`)
	r := cluster.NewResolver(bin, 100*time.Millisecond)

	start := time.Now()
	_, err := r.Resolve(context.Background(), "checkout", "default")
	elapsed := time.Since(start)

	var resErr *cluster.ResolveError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve() error = %v, want *ResolveError", err)
	}
	if resErr.Kind != cluster.Timeout {
		t.Errorf("Kind = %v, want Timeout", resErr.Kind)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Resolve() took %v, should return promptly after deadline", elapsed)
	}
}

func TestResolveMissingKubectl(t *testing.T) {
	r := cluster.NewResolver(filepath.Join(t.TempDir(), "nope"), time.Second)

	_, err := r.Resolve(context.Background(), "checkout", "default")
	if err == nil {
		t.Fatal("Resolve() with missing binary should fail")
	}
	var resErr *cluster.ResolveError
	if errors.As(err, &resErr) {
		t.Fatalf("missing binary should not be a ResolveError, got kind %v", resErr.Kind)
	}
}
