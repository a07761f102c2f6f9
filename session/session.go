// Package session owns the connection to one BNO055 and runs every operation issued
// against it one at a time, in arrival order.
//
// A Session is brought up by Open: the bus handle is opened, the chip identity is
// verified, the configuration list is applied in order and an initial ChipInfo is
// cached. Afterwards a single goroutine executes queued calls; each public method is
// one queue item, so composite reads (vectors, status) and multi-register writes are
// never interleaved with other callers.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
)

// ErrSessionUnavailable is returned without bus I/O by a Faulted or closed session.
var ErrSessionUnavailable = fmt.Errorf("session unavailable")

type State int32

const (
	Disconnected State = iota
	Verifying
	Configuring
	Ready
	Faulted
)

var stateNames = []string{
	Disconnected: "disconnected",
	Verifying:    "verifying",
	Configuring:  "configuring",
	Ready:        "ready",
	Faulted:      "faulted",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config is the session construction input.
type Config struct {
	Bus      string
	Address  uint16
	Settings []orientation.Setting
}

type Opts struct {
	Logger *slog.Logger
	Driver []orientation.BNO055Opt
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithDriverOptions passes options (timing delays) to the underlying driver.
func WithDriverOptions(opts ...orientation.BNO055Opt) Opt {
	return func(o *Opts) {
		o.Driver = append(o.Driver, opts...)
	}
}

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context, d *orientation.BNO055) error
	done chan error
}

type Session struct {
	bus     string
	address uint16
	conn    imu.Conn
	dev     *orientation.BNO055
	log     *slog.Logger

	state atomic.Int32
	jobs  chan job
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu       sync.Mutex
	settings []orientation.Setting
	info     orientation.ChipInfo
	lastUsed time.Time
}

// Open brings up a session for the chip at cfg.Address on cfg.Bus. Bring-up failures
// (bus, identity, configuration) are returned and the opened handle is closed when it
// implements io.Closer. A failed configuration is reported as *ConfigurationError;
// settings before the failing one stay applied on the chip.
func Open(ctx context.Context, open imu.Opener, cfg Config, opts ...Opt) (*Session, error) {
	if cfg.Address > 0x7F {
		return nil, fmt.Errorf("%w: address %#x is not a 7-bit bus address", orientation.ErrInvalidArgument, cfg.Address)
	}
	o := Opts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		bus:      cfg.Bus,
		address:  cfg.Address,
		log:      o.Logger.With("bus", cfg.Bus, "address", fmt.Sprintf("%#02x", cfg.Address)),
		jobs:     make(chan job),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		settings: append([]orientation.Setting(nil), cfg.Settings...),
	}
	s.setState(Disconnected)
	conn, err := open(ctx, cfg.Bus, cfg.Address)
	if err != nil {
		s.fault(err)
		return nil, fmt.Errorf("could not open bus %s: %w", cfg.Bus, err)
	}
	s.conn = conn
	s.dev = orientation.NewBNO055(conn, o.Driver...)
	err = s.bringUp(context.WithoutCancel(ctx))
	if err != nil {
		s.fault(err)
		s.closeConn()
		return nil, err
	}
	s.touch()
	go s.run()
	return s, nil
}

func (s *Session) bringUp(ctx context.Context) error {
	s.setState(Verifying)
	err := s.dev.VerifyIdentity(ctx)
	if err != nil {
		return fmt.Errorf("could not verify chip identity: %w", err)
	}
	err = s.configure(ctx, s.Settings())
	if err != nil {
		return err
	}
	info, err := s.dev.Info(ctx)
	if err != nil {
		return fmt.Errorf("could not read initial status: %w", err)
	}
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	s.setState(Ready)
	return nil
}

// configure applies settings in order and stops at the first failure.
func (s *Session) configure(ctx context.Context, settings []orientation.Setting) error {
	s.setState(Configuring)
	_, err := s.apply(ctx, settings)
	return err
}

// apply returns the number of settings applied before the first failure.
func (s *Session) apply(ctx context.Context, settings []orientation.Setting) (int, error) {
	for i, setting := range settings {
		s.log.Debug("applying setting", "setting", setting.Name, "value", setting.Value)
		err := s.dev.Apply(ctx, setting)
		if err != nil {
			return i, &ConfigurationError{Index: i, Setting: setting, Err: err}
		}
	}
	return len(settings), nil
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.log.Debug("session state changed", "from", prev, "to", st)
	}
}

func (s *Session) fault(err error) {
	s.setState(Faulted)
	s.log.Error("session faulted", "error", err)
}

func (s *Session) closeConn() error {
	if c, ok := s.conn.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case j := <-s.jobs:
			j.done <- s.execute(j)
		case <-s.quit:
			return
		}
	}
}

func (s *Session) execute(j job) error {
	defer s.touch()
	if s.State() == Faulted {
		return ErrSessionUnavailable
	}
	return j.fn(j.ctx, s.dev)
}

// call queues fn and waits for its result. A call whose context ends before the
// session accepts it is dropped; once accepted it runs to completion.
func (s *Session) call(ctx context.Context, fn func(ctx context.Context, d *orientation.BNO055) error) error {
	if s.State() == Faulted {
		return ErrSessionUnavailable
	}
	j := job{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-s.quit:
		return ErrSessionUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-j.done
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Bus() string {
	return s.bus
}

func (s *Session) Address() uint16 {
	return s.address
}

// LastUsed is the completion time of the most recent call.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Settings returns the last-applied configuration list.
func (s *Session) Settings() []orientation.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orientation.Setting(nil), s.settings...)
}

// Info returns the ChipInfo cached at bring-up or by the latest Status or Reset.
func (s *Session) Info() orientation.ChipInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Device returns the raw driver. Calls made on it bypass the session queue.
func (s *Session) Device() *orientation.BNO055 {
	return s.dev
}

// Do runs fn as a single queue item.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, d *orientation.BNO055) error) error {
	return s.call(ctx, fn)
}

// Connected re-reads the chip identity. A mismatching identity reports false without
// an error and faults the session; a bus error leaves it Ready.
func (s *Session) Connected(ctx context.Context) (bool, error) {
	var ok bool
	err := s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		id, err := d.ChipID(ctx)
		if err != nil {
			return err
		}
		ok = id == register.ChipIdentity
		if !ok {
			s.fault(&orientation.IdentityMismatchError{Expected: register.ChipIdentity, Got: id})
		}
		return nil
	})
	return ok, err
}

// Status reads a fresh ChipInfo snapshot and caches it.
func (s *Session) Status(ctx context.Context) (orientation.ChipInfo, error) {
	var info orientation.ChipInfo
	err := s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		var err error
		info, err = d.Info(ctx)
		return err
	})
	if err != nil {
		return info, err
	}
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	return info, nil
}

func (s *Session) Position(ctx context.Context) (orientation.Position, error) {
	var p orientation.Position
	err := s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		var err error
		p, err = d.Position(ctx)
		return err
	})
	return p, err
}

func (s *Session) OperationMode(ctx context.Context) (register.OperationMode, error) {
	mode := register.OperationModeUnknown
	err := s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		var err error
		mode, err = d.OperationMode(ctx)
		return err
	})
	return mode, err
}

func (s *Session) SetOperationMode(ctx context.Context, mode register.OperationMode) error {
	if _, err := mode.Encode(); err != nil {
		return err
	}
	return s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		return d.SetOperationMode(ctx, mode)
	})
}

// Configure applies extra settings as one queue item. Settings applied before a
// failing one are kept and appended to the last-applied configuration, so a later
// Reset restores them.
func (s *Session) Configure(ctx context.Context, settings ...orientation.Setting) error {
	return s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		n, err := s.apply(ctx, settings)
		s.mu.Lock()
		s.settings = append(s.settings, settings[:n]...)
		s.mu.Unlock()
		return err
	})
}

// Reset issues a system reset and re-applies the last-applied configuration. Any
// failure leaves the session Faulted.
func (s *Session) Reset(ctx context.Context) error {
	return s.call(ctx, func(ctx context.Context, d *orientation.BNO055) error {
		err := s.reset(ctx)
		if err != nil {
			s.fault(err)
			return err
		}
		return nil
	})
}

func (s *Session) reset(ctx context.Context) error {
	err := s.dev.Reset(ctx)
	if err != nil {
		return err
	}
	err = s.configure(ctx, s.Settings())
	if err != nil {
		return err
	}
	info, err := s.dev.Info(ctx)
	if err != nil {
		return fmt.Errorf("could not read status after reset: %w", err)
	}
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	s.setState(Ready)
	return nil
}

// Close stops the queue and closes the bus handle when it implements io.Closer.
// Calls issued afterwards fail with ErrSessionUnavailable.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		<-s.done
		if s.State() != Faulted {
			s.setState(Disconnected)
		}
		err = s.closeConn()
	})
	return err
}
