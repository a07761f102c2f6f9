package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/config"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
	"github.com/mklimuk/imu/session"
)

var calibrationCmd = cli.Command{
	Name:  "calibration",
	Usage: "show the calibration status",
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			var cal register.CalibrationStatus
			err := s.Do(e.ctx, func(ctx context.Context, d *orientation.BNO055) error {
				var err error
				cal, err = d.CalibrationStatus(ctx)
				return err
			})
			if err != nil {
				return console.Exit(1, "calibration status read error: %s", console.Red(err))
			}
			printCalibration(cal)
			if cal.Calibrated() {
				console.PInfof(console.PictoTarget, "fully calibrated")
			}
			return nil
		})
	},
	Subcommands: cli.Commands{
		&calibrationSaveCmd,
		&calibrationLoadCmd,
	},
}

var calibrationSaveCmd = cli.Command{
	Name:      "save",
	Usage:     "save the calibration profile to a file",
	ArgsUsage: "<file.yaml|file.toml>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "save even if not fully calibrated"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "usage: imu calibration save <file>")
		}
		return withSession(c, func(e *env, s *session.Session) error {
			var cal register.CalibrationStatus
			var profile register.Profile
			err := inConfigMode(e.ctx, s, func(ctx context.Context, d *orientation.BNO055) error {
				var err error
				if cal, err = d.CalibrationStatus(ctx); err != nil {
					return err
				}
				profile, err = d.CalibrationProfile(ctx)
				return err
			})
			if err != nil {
				return console.Exit(1, "calibration profile read error: %s", console.Red(err))
			}
			if !cal.Calibrated() && !c.Bool("force") {
				printCalibration(cal)
				return console.Exit(2, "chip is not fully calibrated, use --force to save anyway")
			}
			err = config.SaveProfile(c.Args().First(), profile)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			console.PInfof(console.PictoFloppy, "calibration profile saved to %s", console.White(c.Args().First()))
			return nil
		})
	},
}

var calibrationLoadCmd = cli.Command{
	Name:      "load",
	Usage:     "write a saved calibration profile to the chip",
	ArgsUsage: "<file.yaml|file.toml>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "usage: imu calibration load <file>")
		}
		profile, err := config.LoadProfile(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		return withSession(c, func(e *env, s *session.Session) error {
			mode, err := s.OperationMode(e.ctx)
			if err != nil {
				return console.Exit(1, "mode read error: %s", console.Red(err))
			}
			// Configure keeps the profile in the session settings so a reset restores it.
			settings := []orientation.Setting{
				{Name: orientation.SettingOperationMode, Value: register.OperationModeConfig},
				{Name: orientation.SettingCalibrationProfile, Value: profile},
			}
			if mode != register.OperationModeConfig && mode != register.OperationModeUnknown {
				settings = append(settings, orientation.Setting{Name: orientation.SettingOperationMode, Value: mode})
			}
			err = s.Configure(e.ctx, settings...)
			if err != nil {
				return console.Exit(1, "calibration profile write error: %s", console.Red(err))
			}
			console.PInfof(console.PictoCheck, "calibration profile loaded from %s", console.White(c.Args().First()))
			return nil
		})
	},
}
