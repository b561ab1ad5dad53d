package main

import (
	"fmt"
	"os"

	"file2pcie/cmd/f2p/commands"
	"file2pcie/pkg/printer"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(printer.ExitCode(err))
	}
}
