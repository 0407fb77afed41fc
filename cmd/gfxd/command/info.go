package command

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/urfave/cli"

	"github.com/gfxmux/gfxd/pkg/gfxenv"
	"github.com/gfxmux/gfxd/pkg/props"
)

func runInfo(cliContext *cli.Context) error {
	if err := setupLogger(cliContext); err != nil {
		return err
	}

	store := props.Env()
	env := gfxenv.New(gfxenv.WithProperties(store))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	hostInfo, err := host.Info()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gfxd: cannot read host info: %v\n", err)
	} else {
		table.Append([]string{"Hostname", hostInfo.Hostname})
		table.Append([]string{"OS", hostInfo.OS})
		table.Append([]string{"Platform", fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)})
		table.Append([]string{"Kernel", fmt.Sprintf("%s (%s)", hostInfo.KernelVersion, hostInfo.KernelArch)})
	}

	table.Append([]string{"Manufacturer", store.String("ro.product.manufacturer", "UNSET")})
	table.Append([]string{"Model", store.String("ro.product.model", "UNSET")})
	table.Append([]string{"VNDK version", store.String("ro.vndk.version", "(unset)")})
	table.Append([]string{"Alt backend gate", fmt.Sprintf("%v", store.Bool("debug.gfxd.alt.enable", false))})
	table.Append([]string{"Can load system libraries", fmt.Sprintf("%d", env.CanLoadSystemLibraries())})

	table.Render()
	return nil
}
