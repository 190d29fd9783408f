// Command twitter-stream consumes the filtered stream or the compliance
// streams and writes every event as one JSON line to stdout.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
