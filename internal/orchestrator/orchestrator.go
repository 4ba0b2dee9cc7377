// Package orchestrator composes one execution request end to end:
// workspace, language setup, target resolution, config merge, mirrored
// execution, cleanup. Steps are strictly sequential and any failure
// short-circuits to cleanup; retries are the caller's concern.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/michaelbrown/podmirror/internal/cluster"
	"github.com/michaelbrown/podmirror/internal/mirrord"
	"github.com/michaelbrown/podmirror/internal/runner"
	"github.com/michaelbrown/podmirror/internal/workspace"
)

// Stage names the lifecycle step currently executing, for streaming
// progress to callers.
type Stage string

const (
	StageWorkspace Stage = "workspace"
	StageSetup     Stage = "setup"
	StageResolve   Stage = "resolve"
	StageConfig    Stage = "config"
	StageExecute   Stage = "execute"
)

// Resolver maps a deployment name to a running pod.
type Resolver interface {
	Resolve(ctx context.Context, deployment, namespace string) (cluster.Target, error)
}

// Engine runs an invocation under the mirroring tool.
type Engine interface {
	Run(ctx context.Context, argv []string, config []byte) (*mirrord.Outcome, error)
}

// Request is one immutable execution request.
type Request struct {
	Runnable   runner.Runnable
	Deployment string
	Namespace  string // empty means the orchestrator default
	// MirrordConfig is the caller's partial config as raw JSON.
	MirrordConfig []byte

	// OnStage, when set, is called as each lifecycle step begins.
	OnStage func(Stage)
}

// Result is the outcome of a successful request.
type Result struct {
	Stdout string
	Stderr string
}

// Orchestrator wires the components of the execution pipeline together.
type Orchestrator struct {
	Workspaces       *workspace.Manager
	Resolver         Resolver
	Engine           Engine
	DefaultNamespace string
}

// New creates an Orchestrator.
func New(ws *workspace.Manager, resolver Resolver, engine Engine, defaultNamespace string) *Orchestrator {
	return &Orchestrator{
		Workspaces:       ws,
		Resolver:         resolver,
		Engine:           engine,
		DefaultNamespace: defaultNamespace,
	}
}

// Run executes one request. The workspace is released on every exit path;
// the first failing step's typed error is returned untouched.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Runnable == nil {
		return nil, fmt.Errorf("request has no runnable")
	}
	if req.Deployment == "" {
		return nil, fmt.Errorf("request has no deployment")
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = o.DefaultNamespace
	}

	notify := req.OnStage
	if notify == nil {
		notify = func(Stage) {}
	}

	notify(StageWorkspace)
	ws, err := o.Workspaces.Acquire()
	if err != nil {
		return nil, err
	}
	defer o.Workspaces.Release(ws)

	notify(StageSetup)
	if err := req.Runnable.Setup(ctx, ws); err != nil {
		return nil, err
	}

	notify(StageResolve)
	target, err := o.Resolver.Resolve(ctx, req.Deployment, namespace)
	if err != nil {
		return nil, err
	}

	notify(StageConfig)
	config, err := mirrord.Merge(req.MirrordConfig, target)
	if err != nil {
		return nil, err
	}

	argv, err := req.Runnable.Command(ws)
	if err != nil {
		return nil, err
	}

	notify(StageExecute)
	outcome, err := o.Engine.Run(ctx, argv, config)
	if err != nil {
		return nil, err
	}

	return &Result{
		Stdout: string(outcome.Stdout),
		Stderr: string(outcome.Stderr),
	}, nil
}
