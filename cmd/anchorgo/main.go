// Command anchorgo compiles Anchor IDL documents and generates Go clients.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/anchorgo/internal/cli"
)

func main() {
	err := cli.Execute()
	if err == nil {
		return
	}
	// Commands report their own failures; anything else is a usage error
	// cobra left unprinted.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
