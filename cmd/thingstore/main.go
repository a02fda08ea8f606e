// Package main provides the thingstore CLI.
package main

import "github.com/mesh-intelligence/thingstore/internal/cli"

func main() {
	cli.Execute()
}
