package main

import (
	"context"
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_ = closeVault()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
