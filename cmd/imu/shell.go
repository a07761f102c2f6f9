package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/orientation/register"
)

var errQuit = errors.New("quit")

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive session with the configured devices",
	Action: func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          prompt(e),
			AutoComplete:    completer(e),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return err
		}
		defer func() { _ = rl.Close() }()
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			err = execLine(e, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				console.Errorf("%s", err)
			}
			rl.SetPrompt(prompt(e))
		}
	},
}

func prompt(e *env) string {
	return fmt.Sprintf("%s> ", e.target().name)
}

func completer(e *env) *readline.PrefixCompleter {
	devices := func(string) []string {
		names := make([]string, 0, len(e.targets))
		for _, tg := range e.targets {
			names = append(names, tg.name)
		}
		return names
	}
	modes := func(string) []string { return register.OperationModeNames() }
	return readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("position"),
		readline.PcItem("connected"),
		readline.PcItem("mode", readline.PcItem("set", readline.PcItemDynamic(modes))),
		readline.PcItem("reset"),
		readline.PcItem("calibration"),
		readline.PcItem("use", readline.PcItemDynamic(devices)),
		readline.PcItem("devices"),
		readline.PcItem("sessions"),
		readline.PcItem("idle"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

const shellHelp = `status              chip identity and status
position            sensor vectors, quaternion and temperature
connected           re-check the chip identity
mode [set <mode>]   get or set the operation mode
reset               reset the chip and re-apply its settings
calibration         calibration levels
use <device>        switch to another configured device
devices             configured devices
sessions            open sessions
idle [duration]     close sessions unused for duration
exit                leave the shell
`

// execLine runs one shell command against the selected device.
func execLine(e *env, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "exit", "quit":
		return errQuit
	case "help":
		console.Printf("%s", shellHelp)
		return nil
	case "use":
		if len(args) != 1 {
			return fmt.Errorf("usage: use <device>")
		}
		return e.use(args[0])
	case "devices":
		for i, tg := range e.targets {
			marker := " "
			if i == e.current {
				marker = "*"
			}
			console.Printf("%s %s (%s %s %#02x)\n", marker, tg.name, tg.adapter, tg.cfg.Bus, tg.cfg.Address)
		}
		return nil
	case "sessions":
		for _, k := range e.registry.Keys() {
			console.Printf("%s\n", k)
		}
		return nil
	case "idle":
		var timeout time.Duration
		if len(args) == 1 {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}
			timeout = d
		}
		for _, k := range e.registry.CloseIdle(timeout) {
			console.Infof("closed idle session %s", k)
		}
		return nil
	}

	s, err := e.session()
	if err != nil {
		return err
	}
	switch cmd {
	case "status":
		info, err := s.Status(e.ctx)
		if err != nil {
			return err
		}
		printInfo(e.target().name, info)
	case "position":
		p, err := s.Position(e.ctx)
		if err != nil {
			return err
		}
		printPosition(p)
	case "connected":
		ok, err := s.Connected(e.ctx)
		if err != nil {
			return err
		}
		console.Printf("connected: %s\n", console.Flag(ok))
	case "mode":
		if len(args) == 2 && args[0] == "set" {
			mode, err := register.ParseOperationMode(args[1])
			if err != nil {
				return err
			}
			return s.SetOperationMode(e.ctx, mode)
		}
		if len(args) != 0 {
			return fmt.Errorf("usage: mode [set <mode>]")
		}
		mode, err := s.OperationMode(e.ctx)
		if err != nil {
			return err
		}
		console.Printf("operation mode: %s\n", console.Cyan(mode))
	case "reset":
		err = s.Reset(e.ctx)
		if err != nil {
			return err
		}
		console.PInfof(console.PictoWrench, "%s reset", e.target().name)
	case "calibration":
		info, err := s.Status(e.ctx)
		if err != nil {
			return err
		}
		printCalibration(info.Calibration)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}
