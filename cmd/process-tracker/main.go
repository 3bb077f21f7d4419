// Command process-tracker administers the process tracking data store: it
// creates the schema and maintains the lookup tables.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
