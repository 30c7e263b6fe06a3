package main

import (
	"fmt"
	"os"

	"github.com/ikkim/cart-recovery-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.DefaultLoader).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
