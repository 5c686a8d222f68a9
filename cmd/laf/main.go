// Command laf fits local percentile curves of a target drop-size moment over
// the renormalized (mu, gamma) plane, serves the latest fit over HTTP, and
// derives accuracy and two-site discrepancy reports from fit tables.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
