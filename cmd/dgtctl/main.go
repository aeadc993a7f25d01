package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout).rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dgtctl: %v\n", err)
		os.Exit(1)
	}
}
