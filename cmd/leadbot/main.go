package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m3rciful/leadbot/cmd/leadbot/commands"
)

func main() {
	if err := commands.Execute(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "leadbot:", err)
		os.Exit(1)
	}
}
