package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/michaelbrown/podmirror/internal/cluster"
	"github.com/michaelbrown/podmirror/internal/mirrord"
	"github.com/michaelbrown/podmirror/internal/orchestrator"
	"github.com/michaelbrown/podmirror/internal/runner"
	"github.com/michaelbrown/podmirror/internal/workspace"
)

type fakeResolver struct {
	target    cluster.Target
	err       error
	namespace string
	calls     int
}

func (f *fakeResolver) Resolve(ctx context.Context, deployment, namespace string) (cluster.Target, error) {
	f.calls++
	f.namespace = namespace
	if f.err != nil {
		return cluster.Target{}, f.err
	}
	return f.target, nil
}

type fakeEngine struct {
	outcome *mirrord.Outcome
	err     error
	argv    []string
	config  []byte
	calls   int
}

func (f *fakeEngine) Run(ctx context.Context, argv []string, config []byte) (*mirrord.Outcome, error) {
	f.calls++
	f.argv = argv
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type failingRunnable struct{ err error }

func (f *failingRunnable) Setup(ctx context.Context, ws *workspace.Workspace) error { return f.err }
func (f *failingRunnable) Command(ws *workspace.Workspace) ([]string, error) {
	return []string{"true"}, nil
}

// workspacesLeft counts leftover workspace directories under base.
func workspacesLeft(t *testing.T, base string) int {
	t.Helper()
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func newOrchestrator(base string, r *fakeResolver, e *fakeEngine) *orchestrator.Orchestrator {
	return orchestrator.New(workspace.NewManager(base), r, e, "default")
}

func TestRunSuccess(t *testing.T) {
	base := t.TempDir()
	resolver := &fakeResolver{target: cluster.Target{Namespace: "default", Pod: "checkout-7f9"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{Stdout: []byte("payload"), Stderr: []byte("diag")}}
	o := newOrchestrator(base, resolver, engine)

	result, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand(`echo "a b" c`),
		Deployment:    "checkout",
		MirrordConfig: []byte(`{"feature":{"network":{"incoming":{"mode":"mirror","ports":[8080]}}}}`),
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Stdout != "payload" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "payload")
	}
	if result.Stderr != "diag" {
		t.Errorf("Stderr = %q, want %q", result.Stderr, "diag")
	}

	wantArgv := []string{"echo", "a b", "c"}
	if !reflect.DeepEqual(engine.argv, wantArgv) {
		t.Errorf("engine argv = %q, want %q", engine.argv, wantArgv)
	}

	if n := workspacesLeft(t, base); n != 0 {
		t.Errorf("%d workspaces left after success, want 0", n)
	}
}

func TestRunDefaultsNamespace(t *testing.T) {
	resolver := &fakeResolver{target: cluster.Target{Namespace: "default", Pod: "p-1"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{}}
	o := newOrchestrator(t.TempDir(), resolver, engine)

	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand("true"),
		Deployment:    "checkout",
		MirrordConfig: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if resolver.namespace != "default" {
		t.Errorf("namespace = %q, want default applied", resolver.namespace)
	}
}

func TestRunResolutionNotFoundSkipsEngine(t *testing.T) {
	base := t.TempDir()
	resolver := &fakeResolver{err: &cluster.ResolveError{Kind: cluster.NotFound, Deployment: "missing"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{}}
	o := newOrchestrator(base, resolver, engine)

	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand("true"),
		Deployment:    "missing",
		MirrordConfig: []byte(`{}`),
	})

	var resErr *cluster.ResolveError
	if !errors.As(err, &resErr) || resErr.Kind != cluster.NotFound {
		t.Fatalf("Run() error = %v, want NotFound ResolveError", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine invoked %d times after failed resolution, want 0", engine.calls)
	}
	if n := workspacesLeft(t, base); n != 0 {
		t.Errorf("%d workspaces left after failure, want 0", n)
	}
}

func TestRunSetupFailureCleansUp(t *testing.T) {
	base := t.TempDir()
	resolver := &fakeResolver{target: cluster.Target{Pod: "p"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{}}
	o := newOrchestrator(base, resolver, engine)

	setupErr := &runner.SetupError{Step: "cargo build", Stderr: "boom"}
	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      &failingRunnable{err: setupErr},
		Deployment:    "checkout",
		MirrordConfig: []byte(`{}`),
	})

	var got *runner.SetupError
	if !errors.As(err, &got) {
		t.Fatalf("Run() error = %v, want *SetupError", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver invoked after setup failure")
	}
	if engine.calls != 0 {
		t.Errorf("engine invoked after setup failure")
	}
	if n := workspacesLeft(t, base); n != 0 {
		t.Errorf("%d workspaces left after setup failure, want 0", n)
	}
}

func TestRunInvalidConfigSkipsEngine(t *testing.T) {
	base := t.TempDir()
	resolver := &fakeResolver{target: cluster.Target{Namespace: "default", Pod: "p"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{}}
	o := newOrchestrator(base, resolver, engine)

	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand("true"),
		Deployment:    "checkout",
		MirrordConfig: []byte(`{not json`),
	})

	var cfgErr *mirrord.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Kind != mirrord.InvalidJSON {
		t.Fatalf("Run() error = %v, want InvalidJSON ConfigError", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine invoked with invalid config")
	}
	if n := workspacesLeft(t, base); n != 0 {
		t.Errorf("%d workspaces left, want 0", n)
	}
}

func TestRunExecutionFailureCleansUp(t *testing.T) {
	base := t.TempDir()
	resolver := &fakeResolver{target: cluster.Target{Namespace: "default", Pod: "p"}}
	engine := &fakeEngine{err: &mirrord.ExecError{Kind: mirrord.Timeout, ExitCode: -1}}
	o := newOrchestrator(base, resolver, engine)

	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand("true"),
		Deployment:    "checkout",
		MirrordConfig: []byte(`{}`),
	})

	var execErr *mirrord.ExecError
	if !errors.As(err, &execErr) || execErr.Kind != mirrord.Timeout {
		t.Fatalf("Run() error = %v, want Timeout ExecError", err)
	}
	if n := workspacesLeft(t, base); n != 0 {
		t.Errorf("%d workspaces left after execution failure, want 0", n)
	}
}

func TestRunStageOrder(t *testing.T) {
	resolver := &fakeResolver{target: cluster.Target{Namespace: "default", Pod: "p"}}
	engine := &fakeEngine{outcome: &mirrord.Outcome{}}
	o := newOrchestrator(t.TempDir(), resolver, engine)

	var stages []orchestrator.Stage
	_, err := o.Run(context.Background(), orchestrator.Request{
		Runnable:      runner.NewCommand("true"),
		Deployment:    "checkout",
		MirrordConfig: []byte(`{}`),
		OnStage:       func(s orchestrator.Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []orchestrator.Stage{
		orchestrator.StageWorkspace,
		orchestrator.StageSetup,
		orchestrator.StageResolve,
		orchestrator.StageConfig,
		orchestrator.StageExecute,
	}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestRunValidatesRequest(t *testing.T) {
	o := newOrchestrator(t.TempDir(), &fakeResolver{}, &fakeEngine{})

	if _, err := o.Run(context.Background(), orchestrator.Request{Deployment: "x"}); err == nil {
		t.Error("Run() without runnable should fail")
	}
	if _, err := o.Run(context.Background(), orchestrator.Request{Runnable: runner.NewCommand("true")}); err == nil {
		t.Error("Run() without deployment should fail")
	}
}
