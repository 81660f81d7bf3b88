package main

import (
	"os"

	"github.com/grovetools/editorbridge/cmd"
	"github.com/grovetools/editorbridge/tui"
)

func main() {
	tui.InitializeTUI()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
