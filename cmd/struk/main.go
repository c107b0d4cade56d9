package main

import (
	"os"

	"struk-print/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
