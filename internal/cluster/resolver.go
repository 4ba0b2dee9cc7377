// Package cluster resolves logical deployment names to running pods.
package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Target identifies the running pod a deployment name resolved to.
type Target struct {
	Namespace string
	Pod       string
}

// Path returns the mirroring-tool target path for the pod.
func (t Target) Path() string {
	return "pod/" + t.Pod
}

// ResolveErrorKind distinguishes resolution failures.
type ResolveErrorKind int

const (
	// NotFound means the deployment has no running pods.
	NotFound ResolveErrorKind = iota
	// QueryFailed means the cluster query tool exited non-zero.
	QueryFailed
	// Timeout means the query did not complete within the bounded wait.
	Timeout
)

// ResolveError reports why a deployment could not be resolved.
type ResolveError struct {
	Kind       ResolveErrorKind
	Deployment string
	Namespace  string
	Stderr     string
	Err        error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("no pod found for deployment %q in namespace %q", e.Deployment, e.Namespace)
	case Timeout:
		return fmt.Sprintf("resolving deployment %q timed out", e.Deployment)
	default:
		return fmt.Sprintf("kubectl query for deployment %q failed: %s", e.Deployment, e.Stderr)
	}
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolver looks up pods with the cluster query tool.
type Resolver struct {
	Kubectl string        // kubectl binary, e.g. "kubectl"
	Timeout time.Duration // bounded wait for one query
}

// NewResolver creates a Resolver with the given binary and query timeout.
func NewResolver(kubectl string, timeout time.Duration) *Resolver {
	return &Resolver{Kubectl: kubectl, Timeout: timeout}
}

// Resolve maps a deployment name to the first running pod matching its app
// label. Results are never cached: pods are ephemeral, so each request
// looks the target up fresh.
func (r *Resolver) Resolve(ctx context.Context, deployment, namespace string) (Target, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Kubectl,
		"get", "pods",
		"-n", namespace,
		"-l", "app="+deployment,
		"-o", "jsonpath={.items[0].metadata.name}",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Target{}, &ResolveError{
			Kind:       Timeout,
			Deployment: deployment,
			Namespace:  namespace,
			Err:        ctx.Err(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Target{}, &ResolveError{
				Kind:       QueryFailed,
				Deployment: deployment,
				Namespace:  namespace,
				Stderr:     stderr.String(),
				Err:        err,
			}
		}
		return Target{}, fmt.Errorf("running %s: %w", r.Kubectl, err)
	}

	pod := strings.TrimSpace(stdout.String())
	if pod == "" {
		return Target{}, &ResolveError{
			Kind:       NotFound,
			Deployment: deployment,
			Namespace:  namespace,
		}
	}

	return Target{Namespace: namespace, Pod: pod}, nil
}
