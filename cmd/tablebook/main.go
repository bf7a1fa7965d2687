package main

import (
	"os"

	"github.com/eshaffer321/tablebook-go/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Execute())
}
