package main

import (
	"os"

	"github.com/jmolner/layered/cmd/layered/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
