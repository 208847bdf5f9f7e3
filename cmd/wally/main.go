// Command wally bridges PowerScribe 360 activity, chat presence and the
// staff roster into a shared database.
package main

import (
	"fmt"
	"os"

	"github.com/Easy-Rad/wally/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
