package main

import (
	"os"

	"github.com/spigell/broker-genie/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
