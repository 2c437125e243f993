// Command lookout runs a single lookout assertion against a live page and
// exits non-zero with the diagnostic when it fails.
//
//	lookout wait --url https://example.com --css h1 --text "Example"
//	lookout count --url https://example.com --css p --size 2
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
