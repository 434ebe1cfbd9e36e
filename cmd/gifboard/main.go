package main

import (
	"os"

	"github.com/Makepad-fr/gifboard/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
