// ./main.go
package main

import (
	"github.com/evomap/remedy-cli/cmd"
)

// main is the entry point for the remedy CLI. All command-line parsing,
// configuration and execution lives in the cmd package.
func main() {
	cmd.Execute()
}
