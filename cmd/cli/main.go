// Package main is the entry point for the cubesql CLI binary.
package main

import (
	"os"

	cli "cubesql/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
