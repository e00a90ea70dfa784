// Package main is the entry point for the csingest CLI tool, which ingests
// CS2 demo-telemetry payloads, repairs them and serves replay and
// statistics views.
package main

import "github.com/pable/go-cs-ingest/cmd"

func main() {
	cmd.Execute()
}
