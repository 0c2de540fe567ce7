package main

import (
	"os"

	"qvox/internal/cli"
)

func main() { os.Exit(cli.Main()) }
