package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/orientation"
	"github.com/mklimuk/imu/orientation/register"
	"github.com/mklimuk/imu/session"
)

var errBoom = errors.New("bus on fire")

// chipBench hands out a fresh MockChip per open call and remembers them.
type chipBench struct {
	mu     sync.Mutex
	opened map[Key][]*orientation.MockChip
	setup  func(*orientation.MockChip)
}

func newChipBench() *chipBench {
	return &chipBench{opened: make(map[Key][]*orientation.MockChip)}
}

func (b *chipBench) open(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
	chip := orientation.NewMockChip()
	if b.setup != nil {
		b.setup(chip)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := Key{Bus: bus, Address: address}
	b.opened[key] = append(b.opened[key], chip)
	return chip, nil
}

func (b *chipBench) chips(bus string, address uint16) []*orientation.MockChip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened[Key{Bus: bus, Address: address}]
}

func newTestRegistry(bench *chipBench, opts ...Opt) *Registry {
	opts = append([]Opt{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSessionOptions(session.WithDriverOptions(orientation.WithoutDelays())),
	}, opts...)
	return New(bench.open, opts...)
}

func TestRegistry_FindOrCreate(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	defer r.Close()
	ctx := context.Background()

	s1, err := r.Session(ctx, session.Config{Bus: "/dev/i2c-1", Address: 0x28})
	require.NoError(t, err)
	s2, err := r.Session(ctx, session.Config{Bus: "/dev/i2c-1", Address: 0x28})
	require.NoError(t, err)
	s3, err := r.Session(ctx, session.Config{Bus: "/dev/i2c-1", Address: 0x29})
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
	assert.Len(t, bench.chips("/dev/i2c-1", 0x28), 1)
	assert.Len(t, bench.chips("/dev/i2c-1", 0x29), 1)
	assert.Equal(t, []Key{{"/dev/i2c-1", 0x28}, {"/dev/i2c-1", 0x29}}, r.Keys())
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Session(context.Background(), session.Config{Bus: "sim", Address: 0x28})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, bench.chips("sim", 0x28), 1)
}

func TestRegistry_OpeningDoesNotBlockOtherDevices(t *testing.T) {
	bench := newChipBench()
	opening := make(chan struct{})
	release := make(chan struct{})
	open := func(ctx context.Context, bus string, address uint16) (imu.Conn, error) {
		if address == 0x29 {
			close(opening)
			<-release
		}
		return bench.open(ctx, bus, address)
	}
	r := New(open,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSessionOptions(session.WithDriverOptions(orientation.WithoutDelays())),
	)
	defer r.Close()
	ctx := context.Background()

	_, err := r.Session(ctx, session.Config{Bus: "a", Address: 0x28})
	require.NoError(t, err)

	opened := make(chan error, 1)
	go func() {
		_, err := r.Session(ctx, session.Config{Bus: "a", Address: 0x29})
		opened <- err
	}()
	<-opening

	status := make(chan error, 1)
	go func() {
		_, err := r.Status(ctx, "a", 0x28)
		status <- err
	}()
	select {
	case err := <-status:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		close(release)
		t.Fatal("status on a@0x28 waited for a@0x29 to open")
	}

	_, err = r.Lookup("a", 0x29)
	assert.ErrorIs(t, err, ErrNotFound, "a session being opened is not visible yet")
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Session(cancelled, session.Config{Bus: "a", Address: 0x29})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-opened)
	assert.Equal(t, []Key{{"a", 0x28}, {"a", 0x29}}, r.Keys())
	assert.Len(t, bench.chips("a", 0x29), 1)
}

func TestRegistry_SessionAfterClose(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	require.NoError(t, r.Close())

	_, err := r.Session(context.Background(), session.Config{Bus: "sim", Address: 0x28})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, bench.chips("sim", 0x28))
}

func TestRegistry_FailedOpenIsNotStored(t *testing.T) {
	bench := newChipBench()
	bench.setup = func(chip *orientation.MockChip) { chip.SetRegister(register.ChipID, 0xFF) }
	r := newTestRegistry(bench)
	defer r.Close()

	_, err := r.Session(context.Background(), session.Config{Bus: "sim", Address: 0x28})
	var mismatch *orientation.IdentityMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.Empty(t, r.Keys())

	_, err = r.Session(context.Background(), session.Config{Bus: "sim", Address: 0x80})
	assert.ErrorIs(t, err, orientation.ErrInvalidArgument)
}

func TestRegistry_ReplacesFaultedSession(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	defer r.Close()
	ctx := context.Background()

	s1, err := r.Session(ctx, session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)
	first := bench.chips("sim", 0x28)[0]
	first.FailWrite(register.SystemTrigger, errBoom)
	require.Error(t, r.Reset(ctx, "sim", 0x28))
	assert.Equal(t, session.Faulted, s1.State())

	s2, err := r.Session(ctx, session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.True(t, first.Closed())
	assert.Len(t, bench.chips("sim", 0x28), 2)
}

func TestRegistry_LookupFaulted(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	defer r.Close()
	ctx := context.Background()

	_, err := r.Session(ctx, session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)
	bench.chips("sim", 0x28)[0].FailWrite(register.SystemTrigger, errBoom)
	require.Error(t, r.Reset(ctx, "sim", 0x28))

	_, err = r.Position(ctx, "sim", 0x28)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, session.ErrSessionUnavailable)
	assert.Empty(t, r.Keys())
}

func TestRegistry_PassThrough(t *testing.T) {
	bench := newChipBench()
	bench.setup = func(chip *orientation.MockChip) {
		chip.SetVector(register.AccelData, 100, -50, 16384)
	}
	r := newTestRegistry(bench)
	defer r.Close()
	ctx := context.Background()
	_, err := r.Session(ctx, session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)

	ok, err := r.Connected(ctx, "sim", 0x28)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.SetOperationMode(ctx, "sim", 0x28, register.OperationModeNDOF))
	mode, err := r.OperationMode(ctx, "sim", 0x28)
	require.NoError(t, err)
	assert.Equal(t, register.OperationModeNDOF, mode)

	p, err := r.Position(ctx, "sim", 0x28)
	require.NoError(t, err)
	assert.InDelta(t, 163.84, p.Acceleration.Z, 1e-9)

	info, err := r.Status(ctx, "sim", 0x28)
	require.NoError(t, err)
	assert.Equal(t, register.OperationModeNDOF, info.OperationMode)

	d, err := r.Device("sim", 0x28)
	require.NoError(t, err)
	id, err := d.ChipID(ctx)
	require.NoError(t, err)
	assert.Equal(t, register.ChipIdentity, id)

	_, err = r.Status(ctx, "sim", 0x29)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Connected(ctx, "other", 0x28)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_CloseIdle(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench, WithIdleTimeout(time.Hour))
	defer r.Close()
	ctx := context.Background()
	_, err := r.Session(ctx, session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)

	assert.Empty(t, r.CloseIdle(0), "default timeout not reached")
	time.Sleep(20 * time.Millisecond)
	_, err = r.Session(ctx, session.Config{Bus: "sim", Address: 0x29})
	require.NoError(t, err)

	closed := r.CloseIdle(10 * time.Millisecond)
	assert.Equal(t, []Key{{"sim", 0x28}}, closed)
	assert.True(t, bench.chips("sim", 0x28)[0].Closed())
	assert.False(t, bench.chips("sim", 0x29)[0].Closed())
	assert.Equal(t, []Key{{"sim", 0x29}}, r.Keys())
}

func TestRegistry_Remove(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	defer r.Close()
	_, err := r.Session(context.Background(), session.Config{Bus: "sim", Address: 0x28})
	require.NoError(t, err)

	require.NoError(t, r.Remove("sim", 0x28))
	assert.True(t, bench.chips("sim", 0x28)[0].Closed())
	assert.ErrorIs(t, r.Remove("sim", 0x28), ErrNotFound)
}

func TestRegistry_Close(t *testing.T) {
	bench := newChipBench()
	r := newTestRegistry(bench)
	for _, addr := range []uint16{0x28, 0x29} {
		_, err := r.Session(context.Background(), session.Config{Bus: "sim", Address: addr})
		require.NoError(t, err)
	}

	require.NoError(t, r.Close())
	assert.Empty(t, r.Keys())
	assert.True(t, bench.chips("sim", 0x28)[0].Closed())
	assert.True(t, bench.chips("sim", 0x29)[0].Closed())
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "/dev/i2c-1@0x28", Key{Bus: "/dev/i2c-1", Address: 0x28}.String())
}
