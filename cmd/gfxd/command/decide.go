package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/gfxmux/gfxd/pkg/gfxenv"
)

func runDecide(cliContext *cli.Context) error {
	if err := setupLogger(cliContext); err != nil {
		return err
	}

	appName := cliContext.String("app")
	if appName == "" {
		return errors.New("--app is required")
	}

	env := gfxenv.New()
	if driverPath := cliContext.String("driver-path"); driverPath != "" {
		env.SetDriverPath(driverPath)
	}

	var rules io.ReaderAt
	offset := cliContext.Int64("rules-offset")
	length := cliContext.Int64("rules-length")
	if rulesFile := cliContext.String("rules"); rulesFile != "" {
		f, err := os.Open(rulesFile)
		if err != nil {
			return fmt.Errorf("cannot open rules file: %w", err)
		}
		defer f.Close()

		if length < 0 {
			st, err := f.Stat()
			if err != nil {
				return err
			}
			length = st.Size() - offset
		}
		rules = f
	} else if length < 0 {
		length = 0
	}

	optIn := gfxenv.ParseDeveloperOptIn(cliContext.String("opt-in"))
	env.SetAltInfo(cliContext.String("alt-path"), appName, optIn, rules, offset, length)

	if env.ShouldUseAltBackendFor(appName) {
		fmt.Printf("%s: alternate backend\n", appName)
	} else {
		fmt.Printf("%s: vendor driver\n", appName)
	}
	return nil
}
