package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
	"github.com/mklimuk/imu/session"
)

var outputFlag = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Usage:   "output format: text or yaml",
	Value:   "text",
}

func encodeYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	enc.SetIndent(2)
	err := enc.Encode(v)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read the chip identity and status snapshot",
	Flags: []cli.Flag{outputFlag},
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			info, err := s.Status(e.ctx)
			if err != nil {
				return console.Exit(1, "status read error: %s", console.Red(err))
			}
			if c.String("output") == "yaml" {
				return encodeYAML(info)
			}
			printInfo(e.target().name, info)
			return nil
		})
	},
}

func printInfo(name string, info orientation.ChipInfo) {
	console.PInfof(console.PictoCompass, "%s (chip %s, software %s)", console.Bold(name),
		console.White(fmt.Sprintf("%#02x", info.ChipID)), console.White(fmt.Sprintf("%#04x", info.SoftwareRevision)))
	console.Field("operation mode", console.Cyan(info.OperationMode))
	console.Field("power mode", info.PowerMode)
	console.Field("system status", info.SystemStatus)
	if info.SystemError != register.SystemErrorNone {
		console.Field("system error", console.Red(info.SystemError))
	}
	console.Field("self test", console.Flag(info.SelfTest.Passed()))
	console.Field("temperature", fmt.Sprintf("%.0f %s (%s)", info.Temperature.Value, info.Temperature.Unit, info.TempSource))
	console.Field("axis map", info.AxisMap)
	printCalibration(info.Calibration)
}

func printCalibration(cal register.CalibrationStatus) {
	console.Field("calibration", fmt.Sprintf("sys %s gyr %s acc %s mag %s",
		console.Level(cal.System), console.Level(cal.Gyroscope), console.Level(cal.Accelerometer), console.Level(cal.Magnetometer)))
}

var positionCmd = cli.Command{
	Name:  "position",
	Usage: "read every sensor vector, the quaternion and the temperature",
	Flags: []cli.Flag{outputFlag},
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			p, err := s.Position(e.ctx)
			if err != nil {
				return console.Exit(1, "position read error: %s", console.Red(err))
			}
			if c.String("output") == "yaml" {
				return encodeYAML(p)
			}
			printPosition(p)
			return nil
		})
	},
}

func printPosition(p orientation.Position) {
	console.Field("acceleration", p.Acceleration)
	console.Field("magnetometer", p.Magnetometer)
	console.Field("gyroscope", p.Gyroscope)
	console.Field("euler", p.Euler)
	console.Field("linear acceleration", p.LinearAcceleration)
	console.Field("gravity", p.Gravity)
	q := p.Quaternion
	console.Field("quaternion", fmt.Sprintf("(%.4f, %.4f, %.4f, %.4f)", q.W, q.X, q.Y, q.Z))
	console.Field("temperature", fmt.Sprintf("%.1f %s", p.Temperature.Value, p.Temperature.Unit))
}

var connectedCmd = cli.Command{
	Name:  "connected",
	Usage: "check the chip identity",
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			ok, err := s.Connected(e.ctx)
			if err != nil {
				return console.Exit(1, "identity read error: %s", console.Red(err))
			}
			console.Printf("connected: %s\n", console.Flag(ok))
			if !ok {
				return console.Exit(2, "chip identity mismatch")
			}
			return nil
		})
	},
}

var modeCmd = cli.Command{
	Name:  "mode",
	Usage: "get the operation mode",
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			mode, err := s.OperationMode(e.ctx)
			if err != nil {
				return console.Exit(1, "mode read error: %s", console.Red(err))
			}
			console.Printf("operation mode: %s\n", console.Cyan(mode))
			return nil
		})
	},
	Subcommands: cli.Commands{
		&modeSetCmd,
		&modeListCmd,
	},
}

var modeSetCmd = cli.Command{
	Name:      "set",
	Usage:     "set the operation mode",
	ArgsUsage: "<mode>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "usage: imu mode set <mode>")
		}
		mode, err := register.ParseOperationMode(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s (see imu mode list)", err)
		}
		return withSession(c, func(e *env, s *session.Session) error {
			err := s.SetOperationMode(e.ctx, mode)
			if err != nil {
				return console.Exit(1, "mode write error: %s", console.Red(err))
			}
			console.PInfof(console.PictoCheck, "operation mode set to %s", console.Cyan(mode))
			return nil
		})
	},
}

var modeListCmd = cli.Command{
	Name:  "list",
	Usage: "list operation modes",
	Action: func(c *cli.Context) error {
		for _, name := range register.OperationModeNames() {
			console.Printf("%s\n", name)
		}
		return nil
	},
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "reset the chip and re-apply the configuration",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("reset the chip?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return withSession(c, func(e *env, s *session.Session) error {
			err := s.Reset(e.ctx)
			if err != nil {
				return console.Exit(1, "reset failed: %s", console.Red(err))
			}
			console.PInfof(console.PictoWrench, "%s reset, %d settings re-applied", e.target().name, len(s.Settings()))
			return nil
		})
	},
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "print the orientation periodically",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 500 * time.Millisecond},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "stop after n readings (0 runs until interrupted)"},
	},
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, s, c.Duration("interval"), c.Int("count"))
		})
	},
}

func watch(ctx context.Context, s *session.Session, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 0; count <= 0 || n < count; n++ {
		p, err := s.Position(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return console.Exit(1, "position read error: %s", console.Red(err))
		}
		console.Printf("%s heading %8.2f roll %8.2f pitch %8.2f %s  cal %s\n",
			time.Now().Format(time.TimeOnly), p.Euler.X, p.Euler.Y, p.Euler.Z, p.Euler.Unit, console.Level(p.Euler.Calibration))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

var selfTestCmd = cli.Command{
	Name:  "selftest",
	Usage: "run the built-in self test",
	Action: func(c *cli.Context) error {
		return withSession(c, func(e *env, s *session.Session) error {
			var result register.SelfTest
			err := inConfigMode(e.ctx, s, func(ctx context.Context, d *orientation.BNO055) error {
				var err error
				result, err = d.RunSelfTest(ctx)
				return err
			})
			if err != nil {
				return console.Exit(1, "self test failed: %s", console.Red(err))
			}
			console.Field("mcu", console.Flag(result.MCU))
			console.Field("gyroscope", console.Flag(result.Gyroscope))
			console.Field("magnetometer", console.Flag(result.Magnetometer))
			console.Field("accelerometer", console.Flag(result.Accelerometer))
			if !result.Passed() {
				return console.Exit(2, "self test did not pass")
			}
			return nil
		})
	},
}

// inConfigMode runs fn in config mode as one queue item and restores the previous
// operation mode afterwards.
func inConfigMode(ctx context.Context, s *session.Session, fn func(ctx context.Context, d *orientation.BNO055) error) error {
	return s.Do(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		prev, err := d.OperationMode(ctx)
		if err != nil {
			return err
		}
		if prev != register.OperationModeConfig {
			if err = d.SetOperationMode(ctx, register.OperationModeConfig); err != nil {
				return err
			}
		}
		fnErr := fn(ctx, d)
		if prev != register.OperationModeConfig && prev != register.OperationModeUnknown {
			err = d.SetOperationMode(ctx, prev)
		}
		return errors.Join(fnErr, err)
	})
}

var devicesCmd = cli.Command{
	Name:  "devices",
	Usage: "list configured devices",
	Action: func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		for i, tg := range e.targets {
			marker := " "
			if i == e.current {
				marker = "*"
			}
			settings := make([]string, 0, len(tg.cfg.Settings))
			for _, s := range tg.cfg.Settings {
				settings = append(settings, s.Name)
			}
			console.Printf("%s %-12s %-8s %-14s %#02x  %s\n", marker, tg.name, tg.adapter, tg.cfg.Bus, tg.cfg.Address, strings.Join(settings, ","))
		}
		return nil
	},
}
