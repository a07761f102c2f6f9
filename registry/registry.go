// Package registry keeps at most one session per (bus, address) pair.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
	"github.com/mklimuk/imu/session"
)

var ErrNotFound = fmt.Errorf("no session for device")

var ErrClosed = fmt.Errorf("registry closed")

const DefaultIdleTimeout = 5 * time.Minute

type Key struct {
	Bus     string
	Address uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%#02x", k.Bus, k.Address)
}

type Opts struct {
	IdleTimeout time.Duration
	Logger      *slog.Logger
	Session     []session.Opt
}

type Opt func(*Opts)

// WithIdleTimeout sets the timeout CloseIdle uses when called with zero.
func WithIdleTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.IdleTimeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithSessionOptions is passed to every session the registry opens.
func WithSessionOptions(opts ...session.Opt) Opt {
	return func(o *Opts) {
		o.Session = append(o.Session, opts...)
	}
}

// Registry is owned by the embedding application; it holds no global state.
type Registry struct {
	open   imu.Opener
	config Opts

	mu       sync.Mutex
	sessions map[Key]*session.Session
	opening  map[Key]*pending
	closed   bool
}

// pending is a session being opened; done is closed once s or err is set.
type pending struct {
	done chan struct{}
	s    *session.Session
	err  error
}

func New(open imu.Opener, opts ...Opt) *Registry {
	config := Opts{
		IdleTimeout: DefaultIdleTimeout,
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Registry{
		open:     open,
		config:   config,
		sessions: make(map[Key]*session.Session),
		opening:  make(map[Key]*pending),
	}
}

// Session returns the live session for (cfg.Bus, cfg.Address) or opens one with cfg.
// A Faulted session found under the key is closed and replaced. The settings of cfg
// are only used when a new session is opened. Callers asking for a key that is being
// opened wait for that open and share its result; other keys are not blocked.
func (r *Registry) Session(ctx context.Context, cfg session.Config) (*session.Session, error) {
	key := Key{Bus: cfg.Bus, Address: cfg.Address}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	var stale *session.Session
	if s, ok := r.sessions[key]; ok {
		if s.State() != session.Faulted {
			r.mu.Unlock()
			return s, nil
		}
		r.config.Logger.Info("replacing faulted session", "device", key)
		delete(r.sessions, key)
		stale = s
	}
	if p, ok := r.opening[key]; ok {
		r.mu.Unlock()
		select {
		case <-p.done:
			return p.s, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := &pending{done: make(chan struct{})}
	r.opening[key] = p
	r.mu.Unlock()
	if stale != nil {
		_ = stale.Close()
	}

	opts := append([]session.Opt{session.WithLogger(r.config.Logger)}, r.config.Session...)
	s, err := session.Open(ctx, r.open, cfg, opts...)
	if err != nil {
		err = fmt.Errorf("could not open session for %s: %w", key, err)
	}

	r.mu.Lock()
	delete(r.opening, key)
	if err == nil && r.closed {
		_ = s.Close()
		s, err = nil, ErrClosed
	}
	if err == nil {
		r.sessions[key] = s
	}
	r.mu.Unlock()
	p.s, p.err = s, err
	close(p.done)
	return s, err
}

// Lookup returns the session stored under (bus, address) unless it is Faulted.
func (r *Registry) Lookup(bus string, address uint16) (*session.Session, error) {
	key := Key{Bus: bus, Address: address}
	r.mu.Lock()
	s, ok := r.sessions[key]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w %s", ErrNotFound, key)
	}
	if s.State() == session.Faulted {
		delete(r.sessions, key)
		r.mu.Unlock()
		_ = s.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrNotFound, key, session.ErrSessionUnavailable)
	}
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Keys() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Bus != keys[j].Bus {
			return keys[i].Bus < keys[j].Bus
		}
		return keys[i].Address < keys[j].Address
	})
	return keys
}

// Remove closes and forgets the session stored under (bus, address).
func (r *Registry) Remove(bus string, address uint16) error {
	key := Key{Bus: bus, Address: address}
	r.mu.Lock()
	s, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %s", ErrNotFound, key)
	}
	return s.Close()
}

// CloseIdle closes sessions whose last call completed more than timeout ago, using
// the registry idle timeout when timeout is zero. Sessions are never closed on idle
// unless the application calls this.
func (r *Registry) CloseIdle(timeout time.Duration) []Key {
	if timeout <= 0 {
		timeout = r.config.IdleTimeout
	}
	deadline := time.Now().Add(-timeout)
	var idle []*session.Session
	var keys []Key
	r.mu.Lock()
	for k, s := range r.sessions {
		if s.LastUsed().Before(deadline) {
			idle = append(idle, s)
			keys = append(keys, k)
			delete(r.sessions, k)
		}
	}
	r.mu.Unlock()
	for i, s := range idle {
		r.config.Logger.Debug("closing idle session", "device", keys[i], "last_used", s.LastUsed())
		_ = s.Close()
	}
	return keys
}

// Close closes every session. Sessions still opening are closed when their open
// completes and Session returns ErrClosed from then on.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[Key]*session.Session)
	r.mu.Unlock()
	var first error
	for _, s := range sessions {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// The calls below address an existing session by key.

func (r *Registry) Connected(ctx context.Context, bus string, address uint16) (bool, error) {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return false, err
	}
	return s.Connected(ctx)
}

func (r *Registry) Status(ctx context.Context, bus string, address uint16) (orientation.ChipInfo, error) {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return orientation.ChipInfo{}, err
	}
	return s.Status(ctx)
}

func (r *Registry) Reset(ctx context.Context, bus string, address uint16) error {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return err
	}
	return s.Reset(ctx)
}

func (r *Registry) Position(ctx context.Context, bus string, address uint16) (orientation.Position, error) {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return orientation.Position{}, err
	}
	return s.Position(ctx)
}

func (r *Registry) Device(bus string, address uint16) (*orientation.BNO055, error) {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return nil, err
	}
	return s.Device(), nil
}

func (r *Registry) OperationMode(ctx context.Context, bus string, address uint16) (register.OperationMode, error) {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return register.OperationModeUnknown, err
	}
	return s.OperationMode(ctx)
}

func (r *Registry) SetOperationMode(ctx context.Context, bus string, address uint16, mode register.OperationMode) error {
	s, err := r.Lookup(bus, address)
	if err != nil {
		return err
	}
	return s.SetOperationMode(ctx, mode)
}
