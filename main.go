package main

import (
	"os"

	"github.com/jandubois/netrics/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
