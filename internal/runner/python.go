package runner

import (
	"context"
	"time"

	"github.com/michaelbrown/podmirror/internal/workspace"
)

const requirementsTxt = "requests\n"

// Python runs submitted code inside a per-request virtual environment, so
// installed dependencies never touch the system interpreter.
type Python struct {
	Code           string
	Python         string
	InstallTimeout time.Duration
}

func (p *Python) Setup(ctx context.Context, ws *workspace.Workspace) error {
	if err := writeFile(ws.Path("main.py"), []byte(p.Code)); err != nil {
		return err
	}
	if err := writeFile(ws.Path("requirements.txt"), []byte(requirementsTxt)); err != nil {
		return err
	}

	venv := ws.Path(".venv")
	if err := runTool(ctx, p.InstallTimeout, ws.Root, "create venv", p.Python, "-m", "venv", venv); err != nil {
		return err
	}

	pip := ws.Path(".venv", "bin", "pip")
	return runTool(ctx, p.InstallTimeout, ws.Root, "pip install", pip, "install", "-r", ws.Path("requirements.txt"))
}

func (p *Python) Command(ws *workspace.Workspace) ([]string, error) {
	// The venv interpreter, not the system one.
	return []string{ws.Path(".venv", "bin", "python"), ws.Path("main.py")}, nil
}
