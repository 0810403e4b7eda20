package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		slog.Error("arbiterctl failed", "error", err)
		os.Exit(1)
	}
}
