// Package main is the entry point for the wlclean CLI.
package main

import (
	"os"

	"github.com/jmylchreest/wlclean/cmd/wlclean/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
