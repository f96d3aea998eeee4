package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/umbrella-scan/umbrella/cmd/umbrella/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, commands.ErrFindings) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
