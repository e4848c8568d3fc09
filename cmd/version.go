// File: cmd/version.go
package cmd

// Version is the application version. Overridden at build time via
// -ldflags "-X github.com/evomap/remedy-cli/cmd.Version=...".
var Version = "0.4.0"
