// scenecast resolves timed composition markup and plays it back.
//
// Usage:
//
//	scenecast resolve demo.xml
//	scenecast play demo.xml --db trace.db
//	scenecast test ./scenarios
//
// Exit codes:
//   - 0: Success
//   - 1: Validation, scenario or determinism failure
//   - 2: Command error (missing files, bad config, database errors)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/scenecast/internal/cli"
	"github.com/roach88/scenecast/internal/ir"
)

func main() {
	root := cli.NewRootCommand()
	root.Version = ir.EngineVersion

	err := root.Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// Commands report their own ExitErrors; usage errors are printed here
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
