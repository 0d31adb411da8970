// The main package for the hotboards-crawler executable.
package main

import (
	"github.com/pttcrawl/hotboards-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
