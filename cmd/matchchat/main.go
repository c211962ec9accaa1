// Package main is the entry point for the matchchat client.
package main

import (
	"fmt"
	"os"

	"github.com/tOgg1/matchchat/internal/chatui"
)

// Version information (set via -ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := chatui.Execute(fmt.Sprintf("%s (%s, %s)", version, commit, date)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
