package main

import (
	"os"

	"github.com/itohio/pulsecam/ppgcli/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
