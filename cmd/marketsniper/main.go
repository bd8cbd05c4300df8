package main

import (
	"fmt"
	"os"

	"MarketSniper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "marketsniper:", err)
		os.Exit(1)
	}
}
