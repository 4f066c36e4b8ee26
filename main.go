package main

import (
	"os"

	"github.com/rimuru/simpipe/internal/cmd"
	simerrors "github.com/rimuru/simpipe/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(simerrors.ExitCode(err))
	}
}
