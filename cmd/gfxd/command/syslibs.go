package command

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gfxmux/gfxd/pkg/props"
	"github.com/gfxmux/gfxd/pkg/syslibs"
)

func runSyslibs(cliContext *cli.Context) error {
	if err := setupLogger(cliContext); err != nil {
		return err
	}

	store := props.Env()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"List", "Config File", "Library"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(true)

	for _, kind := range []syslibs.Kind{syslibs.LLNDK, syslibs.VNDKSP} {
		path := syslibs.ConfigPath(kind, store)
		sonames, err := syslibs.Load(kind, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gfxd: %v\n", err)
			continue
		}
		for _, soname := range sonames {
			table.Append([]string{kind.String(), path, soname})
		}
	}

	table.Render()
	return nil
}
