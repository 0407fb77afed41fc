// Package command registers the gfxd CLI commands. The CLI exists for
// bring-up and debugging: it runs the same selection logic the platform
// runtime runs in-process, against paths and rules supplied on the command
// line.
package command

import (
	"github.com/urfave/cli"

	"github.com/gfxmux/gfxd/log"
	"github.com/gfxmux/gfxd/version"
)

const usage = `
# decide whether an app should use the alternate backend
gfxd decide --app com.example.game --alt-path /data/app/alt --rules rules.json

# show the system allow-lists a driver namespace links against
gfxd syslibs
`

func App() *cli.App {
	app := cli.NewApp()

	app.Name = "gfxd"
	app.Version = version.Version
	app.Usage = usage
	app.Description = "graphics driver selection and isolation"

	logLevelFlag := cli.StringFlag{
		Name:  "log-level,l",
		Usage: "set the logging level [debug, info, warn, error]",
	}

	app.Commands = []cli.Command{
		{
			Name:   "decide",
			Usage:  "evaluate the backend selection for an application",
			Action: runDecide,
			Flags: []cli.Flag{
				logLevelFlag,
				cli.StringFlag{
					Name:  "app",
					Usage: "application identity to evaluate (required)",
				},
				cli.StringFlag{
					Name:  "driver-path",
					Usage: "vendor driver search path",
				},
				cli.StringFlag{
					Name:  "alt-path",
					Usage: "alternate backend search path",
				},
				cli.StringFlag{
					Name:  "opt-in",
					Usage: "developer preference [alt, native]",
				},
				cli.StringFlag{
					Name:  "rules",
					Usage: "rules file for the selection plugin",
				},
				cli.Int64Flag{
					Name:  "rules-offset",
					Usage: "offset of the rules window in the rules file",
				},
				cli.Int64Flag{
					Name:  "rules-length",
					Usage: "length of the rules window (default: to end of file)",
					Value: -1,
				},
			},
		},
		{
			Name:   "syslibs",
			Usage:  "print the system allow-lists of public native libraries",
			Action: runSyslibs,
			Flags:  []cli.Flag{logLevelFlag},
		},
		{
			Name:   "info",
			Usage:  "print host identity and the selection inputs",
			Action: runInfo,
			Flags:  []cli.Flag{logLevelFlag},
		},
	}

	return app
}

func setupLogger(cliContext *cli.Context) error {
	zapLvl, err := log.ParseLogLevel(cliContext.String("log-level"))
	if err != nil {
		return err
	}
	log.SetLogger(log.CreateLogger(zapLvl, ""))
	return nil
}
