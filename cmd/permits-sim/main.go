// Command permits-sim drives a rate limiter with simulated submissions
// and reports how many of them were admitted in each window.
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
