// Package main provides the entry point for the lzxauto CLI.
package main

import (
	"fmt"
	"os"

	"github.com/SephirothFFKH/LZXAuto/cmd/lzxauto/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
