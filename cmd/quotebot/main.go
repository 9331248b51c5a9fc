package main

import (
	"os"

	"github.com/growex/quotebot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
