package runner

import (
	"context"
	"time"

	"github.com/michaelbrown/podmirror/internal/workspace"
)

const packageJSON = `{
  "name": "mirror-agent",
  "version": "0.1.0",
  "dependencies": {
    "axios": "^1.7.0"
  }
}
`

// Node runs submitted JavaScript with dependencies installed by npm.
type Node struct {
	Code           string
	Node           string
	NPM            string
	InstallTimeout time.Duration
}

func (n *Node) Setup(ctx context.Context, ws *workspace.Workspace) error {
	if err := writeFile(ws.Path("package.json"), []byte(packageJSON)); err != nil {
		return err
	}
	if err := writeFile(ws.Path("index.js"), []byte(n.Code)); err != nil {
		return err
	}
	return runTool(ctx, n.InstallTimeout, ws.Root, "npm install", n.NPM, "install")
}

func (n *Node) Command(ws *workspace.Workspace) ([]string, error) {
	return []string{n.Node, ws.Path("index.js")}, nil
}
