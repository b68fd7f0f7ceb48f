package main

import (
	"os"

	"github.com/Saksham20/ginsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
