package main

import (
	"os"

	"github.com/dshills/mender/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
