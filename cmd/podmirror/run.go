package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/podmirror/internal/config"
	"github.com/michaelbrown/podmirror/internal/orchestrator"
	"github.com/michaelbrown/podmirror/internal/runner"
)

var (
	languageFlag   string
	fileFlag       string
	commandFlag    string
	deploymentFlag string
	namespaceFlag  string
	mirrordFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute code or a command with mirrored traffic",
	Long: `Execute a snippet against a deployment's live traffic.

Code is read from --file, or from stdin when --file is omitted. Raw
command lines skip the toolchain entirely.

Examples:
  podmirror run --deployment checkout --language python --file probe.py
  cat main.rs | podmirror run --deployment checkout --language rust
  podmirror run --deployment checkout --command 'curl -s localhost:8080/health'`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&languageFlag, "language", "", "Language of the code (rust, node, python)")
	runCmd.Flags().StringVar(&fileFlag, "file", "", "File containing the code (default: stdin)")
	runCmd.Flags().StringVar(&commandFlag, "command", "", "Raw command line to execute instead of code")
	runCmd.Flags().StringVar(&deploymentFlag, "deployment", "", "Kubernetes deployment to mirror traffic from")
	runCmd.Flags().StringVar(&namespaceFlag, "namespace", "", "Kubernetes namespace (default from config)")
	runCmd.Flags().StringVar(&mirrordFlag, "mirrord-config", "", "Partial mirrord config as inline JSON")
	runCmd.MarkFlagRequired("deployment")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var rn runner.Runnable
	switch {
	case commandFlag != "":
		rn = runner.NewCommand(commandFlag)
	case languageFlag != "":
		code, err := readCode()
		if err != nil {
			return err
		}
		rn, err = runner.New(languageFlag, code, cfg.RunnerToolchain())
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --command or --language is required")
	}

	mirrordCfg := mirrordFlag
	if mirrordCfg == "" {
		mirrordCfg = "{}"
	}

	o := buildOrchestrator(cfg)
	result, err := o.Run(cmd.Context(), orchestrator.Request{
		Runnable:      rn,
		Deployment:    deploymentFlag,
		Namespace:     namespaceFlag,
		MirrordConfig: []byte(mirrordCfg),
	})
	if err != nil {
		return err
	}

	fmt.Print(result.Stdout)
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}
	return nil
}

func readCode() (string, error) {
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", fileFlag, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
