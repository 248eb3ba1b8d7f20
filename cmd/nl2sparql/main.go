package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/nl2sparql/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd(version)

	handled, err := cli.CheckHelpJSON(os.Stdout, rootCmd, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
