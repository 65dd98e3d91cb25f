// Package main is the entry point for the rtpreplay RTP capture player.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/rtpreplay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
