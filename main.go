// Package main is the entry point for the sectionforge CLI.
package main

import "github.com/sectionforge/sectionforge/cmd"

func main() {
	cmd.Execute()
}
