// Command codeagent runs a command-driven agent against a task: the model
// proposes shell commands, the configured environment executes them, and the
// loop records the full trajectory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
