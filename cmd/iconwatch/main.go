// Package main is the entry point for the iconwatch CLI.
package main

import (
	"os"

	"github.com/iconwatch/iconwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
