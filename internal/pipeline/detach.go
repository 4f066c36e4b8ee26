package pipeline

import "github.com/rimuru/simpipe/internal/engine"

func defaultStartDetached(command string, args []string, dir string) error {
	return engine.StartDetached(command, args, dir)
}
