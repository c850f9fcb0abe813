// Package main is the entry point of the algorun CLI.
package main

import (
	"fmt"
	"os"

	"github.com/sylva-labs/algorun/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
