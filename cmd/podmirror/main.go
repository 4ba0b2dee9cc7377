package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "podmirror",
	Short: "podmirror - run code against live cluster traffic",
	Long: `podmirror builds or prepares a snippet of code (Rust, Node, Python, or a
raw command line), resolves a running pod for a deployment, and executes it
under mirrord so the pod's network traffic is mirrored to the process.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
