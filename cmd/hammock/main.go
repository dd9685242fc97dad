package main

import (
	"os"

	"github.com/TwoApart/hammock/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
