package main

import (
	"fmt"
	"os"

	"festcal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "festcal:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
