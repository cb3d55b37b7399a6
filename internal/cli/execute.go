package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Execute runs the tance CLI and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}

	// --json lives on the root's persistent flag set, parsed by the
	// Execute call above even when the subcommand itself failed.
	exitErr := NormalizeError(err)
	asJSON, _ := root.PersistentFlags().GetBool("json")
	_ = writeCLIError(errOut, exitErr, asJSON)
	return exitErr.Code
}
