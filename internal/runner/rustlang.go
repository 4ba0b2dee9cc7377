package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/michaelbrown/podmirror/internal/workspace"
)

// rustPackageName is the Cargo package name, which also names the binary
// under target/<mode>/.
const rustPackageName = "mirror-agent"

const cargoManifest = `[package]
name = "` + rustPackageName + `"
version = "0.1.0"
edition = "2021"

[dependencies]
reqwest = { version = "0.12", features = ["json", "blocking"] }
serde = { version = "1.0", features = ["derive"] }
serde_json = "1.0"
anyhow = "1.0"
`

// cargoDebugProfile trades runtime speed for compile time when running in
// debug mode.
const cargoDebugProfile = `
[profile.dev]
opt-level = 0
lto = false
incremental = true
`

// Rust compiles submitted code to a native binary with cargo.
type Rust struct {
	Code         string
	Mode         string // "debug" or "release"
	Cargo        string
	BuildTimeout time.Duration
}

func (r *Rust) mode() string {
	if r.Mode == "debug" {
		return "debug"
	}
	return "release"
}

func (r *Rust) binaryPath(ws *workspace.Workspace) string {
	return ws.Path("target", r.mode(), rustPackageName)
}

func (r *Rust) Setup(ctx context.Context, ws *workspace.Workspace) error {
	if err := os.MkdirAll(ws.Path("src"), 0o755); err != nil {
		return &SetupError{Step: "write sources", Err: err}
	}

	manifest := cargoManifest
	if r.mode() == "debug" {
		manifest += cargoDebugProfile
	}
	if err := writeFile(ws.Path("Cargo.toml"), []byte(manifest)); err != nil {
		return err
	}
	if err := writeFile(ws.Path("src", "main.rs"), []byte(r.Code)); err != nil {
		return err
	}

	args := []string{"build"}
	if r.mode() == "release" {
		args = append(args, "--release")
	}
	if err := runTool(ctx, r.BuildTimeout, ws.Root, "cargo build", r.Cargo, args...); err != nil {
		return err
	}

	// A build that exits 0 but leaves no binary is still a failure; don't
	// let it slip through to execution.
	bin := r.binaryPath(ws)
	if _, err := os.Stat(bin); err != nil {
		return &SetupError{Step: "cargo build", Err: fmt.Errorf("binary missing at %s after successful build", bin)}
	}
	return nil
}

func (r *Rust) Command(ws *workspace.Workspace) ([]string, error) {
	return []string{r.binaryPath(ws)}, nil
}
