package main

import (
	"os"

	"github.com/capbridge/capbridge/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
