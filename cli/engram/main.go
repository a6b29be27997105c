package main

import (
	"fmt"
	"os"

	"github.com/papercomputeco/engram/cmd/engram"
)

func main() {
	if err := engram.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
