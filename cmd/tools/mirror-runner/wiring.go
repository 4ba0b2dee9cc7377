package main

import (
	"github.com/michaelbrown/podmirror/internal/cluster"
	"github.com/michaelbrown/podmirror/internal/config"
	"github.com/michaelbrown/podmirror/internal/mirrord"
	"github.com/michaelbrown/podmirror/internal/orchestrator"
	"github.com/michaelbrown/podmirror/internal/workspace"
)

func buildOrchestrator(cfg *config.Config) *orchestrator.Orchestrator {
	return orchestrator.New(
		workspace.NewManager(cfg.Workspace.BaseDir),
		cluster.NewResolver(cfg.Cluster.Kubectl, cfg.Cluster.ResolveTimeout),
		mirrord.NewEngine(cfg.Mirrord.Binary, cfg.Mirrord.ExecTimeout),
		cfg.Cluster.Namespace,
	)
}
