package runner

import (
	"context"
	"errors"

	"github.com/google/shlex"

	"github.com/michaelbrown/podmirror/internal/workspace"
)

// Command runs a user-supplied command line as-is. No setup step: the
// line is tokenized with shell-word semantics (quoting respected, no
// expansion) and handed straight to the mirroring tool.
type Command struct {
	Line string
}

// NewCommand wraps a raw command line as a Runnable.
func NewCommand(line string) *Command {
	return &Command{Line: line}
}

func (c *Command) Setup(ctx context.Context, ws *workspace.Workspace) error {
	return nil
}

func (c *Command) Command(ws *workspace.Workspace) ([]string, error) {
	args, err := shlex.Split(c.Line)
	if err != nil {
		return nil, &SetupError{Step: "parse command", Err: err}
	}
	if len(args) == 0 {
		return nil, &SetupError{Step: "parse command", Err: errors.New("empty command")}
	}
	return args, nil
}
