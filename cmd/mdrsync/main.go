// Package main is the entry point for the mdrsync CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/mdrsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
