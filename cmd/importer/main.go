package main

import (
	"fmt"
	"os"

	"catalog-importer/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "importer:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
