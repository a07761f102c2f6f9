package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/config"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/registry"
	"github.com/mklimuk/imu/session"
	"github.com/mklimuk/imu/snsctx"
)

type target struct {
	name    string
	adapter string
	cfg     session.Config
}

// env wires one invocation: the transports, the session registry and the devices
// taken from the config file or from the command line flags.
type env struct {
	ctx        context.Context
	transports *transports
	registry   *registry.Registry
	targets    []target
	current    int
}

func newEnv(c *cli.Context) (*env, error) {
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	targets, current, err := resolveTargets(c)
	if err != nil {
		return nil, err
	}
	t := newTransports(c.Int("speed"))
	var driver []orientation.BNO055Opt
	sim := true
	for _, tg := range targets {
		if err = t.route(tg.cfg.Bus, tg.adapter); err != nil {
			return nil, err
		}
		sim = sim && tg.adapter == adapterSim
	}
	if sim {
		driver = append(driver, orientation.WithoutDelays())
	}
	reg := registry.New(t.Open, registry.WithSessionOptions(session.WithDriverOptions(driver...)))
	return &env{
		ctx:        ctx,
		transports: t,
		registry:   reg,
		targets:    targets,
		current:    current,
	}, nil
}

func resolveTargets(c *cli.Context) ([]target, int, error) {
	extra, err := parseSettings(c.StringSlice("set"))
	if err != nil {
		return nil, 0, err
	}
	path := c.String("config")
	if path == "" {
		address, err := strconv.ParseUint(c.String("address"), 0, 16)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid address %q: %w", c.String("address"), err)
		}
		name := c.String("device")
		if name == "" {
			name = "imu"
		}
		return []target{{
			name:    name,
			adapter: c.String("adapter"),
			cfg: session.Config{
				Bus:      c.String("bus"),
				Address:  uint16(address),
				Settings: extra,
			},
		}}, 0, nil
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, 0, err
	}
	if len(f.Devices) == 0 {
		return nil, 0, fmt.Errorf("config %s declares no devices", path)
	}
	current := 0
	targets := make([]target, 0, len(f.Devices))
	for i, d := range f.Devices {
		cfg, err := d.SessionConfig()
		if err != nil {
			return nil, 0, fmt.Errorf("device %s: %w", d.Name, err)
		}
		if d.Name == c.String("device") {
			current = i
		}
		targets = append(targets, target{name: d.Name, adapter: d.Adapter, cfg: cfg})
	}
	if name := c.String("device"); name != "" && targets[current].name != name {
		return nil, 0, fmt.Errorf("%w: %q", config.ErrUnknownDevice, name)
	}
	targets[current].cfg.Settings = append(targets[current].cfg.Settings, extra...)
	return targets, current, nil
}

// parseSettings reads name=value pairs. Values are decoded as YAML so numbers,
// lists and maps keep their shape: --set accelerometer_offset=[1,2,3].
func parseSettings(pairs []string) ([]orientation.Setting, error) {
	out := make([]orientation.Setting, 0, len(pairs))
	for _, pair := range pairs {
		s, err := parseSetting(pair)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSetting(pair string) (orientation.Setting, error) {
	name, raw, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return orientation.Setting{}, fmt.Errorf("setting %q is not name=value", pair)
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		value = raw
	}
	return orientation.Setting{Name: strings.TrimSpace(name), Value: value}, nil
}

func (e *env) target() target {
	return e.targets[e.current]
}

func (e *env) session() (*session.Session, error) {
	tg := e.target()
	s, err := e.registry.Session(e.ctx, tg.cfg)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", tg.name, err)
	}
	return s, nil
}

func (e *env) use(name string) error {
	for i, tg := range e.targets {
		if tg.name == name {
			e.current = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", config.ErrUnknownDevice, name)
}

func (e *env) Close() error {
	return errors.Join(e.registry.Close(), e.transports.Close())
}

// withSession runs fn against the selected device and releases everything after.
func withSession(c *cli.Context, fn func(e *env, s *session.Session) error) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	s, err := e.session()
	if err != nil {
		return err
	}
	return fn(e, s)
}
