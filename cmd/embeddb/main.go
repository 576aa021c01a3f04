// Command embeddb runs an embedded dolt SQL server and provisions its
// databases until it receives SIGINT or SIGTERM.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
