package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := newApp()
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			console.Errorf("%v", err)
			return exerr.ExitCode()
		}
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "imu"
	app.EnableBashCompletion = true
	app.DisableSliceFlagSeparator = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "BNO055 orientation sensor cli"
	// exit codes are handled by run
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and bus frame dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "device file (.yaml, .yml or .toml)",
			EnvVars: []string{"IMU_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Usage:   "device name from the config file",
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "transport adapter: sim, periph, nanopi or mcp2221",
			Value:   adapterPeriph,
		},
		&cli.StringFlag{
			Name:    "bus",
			Aliases: []string{"b"},
			Usage:   "bus name (periph: /dev/i2c-1 or 1; nanopi: bus number; mcp2221: usbN)",
		},
		&cli.StringFlag{
			Name:  "address",
			Usage: "7-bit device address",
			Value: "0x28",
		},
		&cli.IntFlag{
			Name:  "speed",
			Usage: "bus clock in Hz (0 keeps the adapter default)",
		},
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "extra setting applied after the configured ones, as name=value (repeatable)",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&statusCmd,
		&positionCmd,
		&connectedCmd,
		&modeCmd,
		&resetCmd,
		&watchCmd,
		&calibrationCmd,
		&selfTestCmd,
		&devicesCmd,
		&shellCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	return app
}
