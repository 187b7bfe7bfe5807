// Command tallyeval runs election tally form extraction experiments: it
// evaluates LLM configurations against ground-truth datasets, either directly
// in-process or through a Temporal worker.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
