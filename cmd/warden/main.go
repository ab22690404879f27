package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MEKXH/warden/cmd/warden/commands"
)

func main() {
	root := commands.NewRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		var exit *commands.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(64)
	}
}
