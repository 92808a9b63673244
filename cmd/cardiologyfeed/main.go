package main

import (
	"context"
	"fmt"
	"os"

	"github.com/realikechukwu/cardiology-feed/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
