package main

import (
	"os"

	"github.com/bnema/volumebot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
