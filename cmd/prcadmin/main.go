package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prcadmin/prcadmin/internal/app/cli"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout, os.Stderr))
}

func runMain(args []string, out, errW io.Writer) int {
	code := cli.CodeOK

	cmd := newRootCmd(out, errW, &code)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(errW, err.Error())

		return int(cli.CodeErrBadArgs)
	}

	return int(code)
}
