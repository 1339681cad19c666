package main

import (
	"os"

	"github.com/varunr89/oews-sub002/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
