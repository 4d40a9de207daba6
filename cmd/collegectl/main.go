// Package main is the entry point for collegectl, the catalog data loader.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
