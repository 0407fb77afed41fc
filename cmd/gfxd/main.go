package main

import (
	"fmt"
	"os"

	"github.com/gfxmux/gfxd/cmd/gfxd/command"
)

func main() {
	app := command.App()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gfxd: %v\n", err)
		os.Exit(1)
	}
}
