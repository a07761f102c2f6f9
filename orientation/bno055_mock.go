package orientation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/imu/orientation/register"
)

var errMockClosed = fmt.Errorf("mock chip is closed")

// Tx is one transaction observed by MockChip. For writes Data holds the payload
// after the register byte; for reads it holds the bytes returned.
type Tx struct {
	Write    bool
	Register register.Address
	Data     []byte
}

func (t Tx) String() string {
	if t.Write {
		return fmt.Sprintf("W %#02x % x", byte(t.Register), t.Data)
	}
	return fmt.Sprintf("R %#02x % x", byte(t.Register), t.Data)
}

// MockChip simulates the register bank of a BNO055 behind an imu.Conn, so drivers,
// sessions and the CLI can run without hardware.
//
// Example usage:
//
//	chip := NewMockChip()
//	chip.SetVector(register.AccelData, 100, -50, 16384)
//	d := NewBNO055(chip, WithoutDelays())
//	acc, _ := d.Acceleration(ctx) // (1.0, -0.5, 163.84) m/s^2
type MockChip struct {
	mu        sync.Mutex
	regs      [256]byte
	log       []Tx
	failWrite map[register.Address]error
	failRead  map[register.Address]error
	delay     time.Duration
	inFlight  int
	maxFlight int
	closed    bool
}

func NewMockChip() *MockChip {
	m := &MockChip{
		failWrite: make(map[register.Address]error),
		failRead:  make(map[register.Address]error),
	}
	m.powerOn()
	return m
}

// powerOn loads the datasheet reset values. Callers hold mu.
func (m *MockChip) powerOn() {
	m.regs = [256]byte{}
	m.regs[register.ChipID] = register.ChipIdentity
	m.regs[register.AccelID] = 0xFB
	m.regs[register.MagID] = 0x32
	m.regs[register.GyroID] = 0x0F
	m.regs[register.SoftwareLSB] = 0x11
	m.regs[register.SoftwareMSB] = 0x03
	m.regs[register.BootloaderID] = 0x15
	m.regs[register.Temperature] = 25
	m.regs[register.SelfTestResult] = 0x0F
	m.regs[register.UnitSelect] = 0x80
	m.regs[register.AxisMapConfig] = 0x24
}

// SetDelay makes every transaction take d, which widens the window in which
// overlapping callers would be observed by MaxConcurrent.
func (m *MockChip) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetRegister stores data starting at reg without logging a transaction.
func (m *MockChip) SetRegister(reg register.Address, data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range data {
		m.regs[byte(reg)+byte(i)] = b
	}
}

// SetVector stores little-endian signed axis values starting at base.
func (m *MockChip) SetVector(base register.Address, axes ...int16) {
	data := make([]byte, 0, 2*len(axes))
	for _, v := range axes {
		lsb, msb := register.EncodeSigned(v)
		data = append(data, lsb, msb)
	}
	m.SetRegister(base, data...)
}

func (m *MockChip) Register(reg register.Address) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg]
}

// FailWrite makes writes addressed to reg fail with err; a nil err clears it.
func (m *MockChip) FailWrite(reg register.Address, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failWrite, reg)
		return
	}
	m.failWrite[reg] = err
}

// FailRead makes reads starting at reg fail with err; a nil err clears it.
func (m *MockChip) FailRead(reg register.Address, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failRead, reg)
		return
	}
	m.failRead[reg] = err
}

// Transactions returns a copy of the transaction log, failed attempts included.
func (m *MockChip) Transactions() []Tx {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tx, len(m.log))
	copy(out, m.log)
	return out
}

func (m *MockChip) ClearTransactions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// Writes returns the logged writes addressed to reg.
func (m *MockChip) Writes(reg register.Address) []Tx {
	var out []Tx
	for _, tx := range m.Transactions() {
		if tx.Write && tx.Register == reg {
			out = append(out, tx)
		}
	}
	return out
}

// MaxConcurrent is the highest number of transactions observed in flight at once.
func (m *MockChip) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

func (m *MockChip) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockChip) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockChip) enter(ctx context.Context) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	delay := m.delay
	m.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leave is called with mu held.
func (m *MockChip) leave() {
	m.inFlight--
}

func (m *MockChip) Write(ctx context.Context, buffer []byte) error {
	if len(buffer) == 0 {
		return fmt.Errorf("%w: empty write", ErrInvalidArgument)
	}
	err := m.enter(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.leave()
	if err != nil {
		return err
	}
	reg := register.Address(buffer[0])
	data := append([]byte(nil), buffer[1:]...)
	m.log = append(m.log, Tx{Write: true, Register: reg, Data: data})
	if m.closed {
		return errMockClosed
	}
	if err, ok := m.failWrite[reg]; ok {
		return err
	}
	if reg == register.SystemTrigger && len(data) > 0 {
		m.trigger(data[0])
		return nil
	}
	for i, b := range data {
		m.regs[byte(reg)+byte(i)] = b
	}
	return nil
}

// trigger applies SYS_TRIGGER side effects. The action bits read back as zero.
func (m *MockChip) trigger(b byte) {
	if b&register.TriggerResetSystem != 0 {
		m.powerOn()
		return
	}
	if b&register.TriggerSelfTest != 0 {
		m.regs[register.SelfTestResult] = 0x0F
	}
	m.regs[register.SystemTrigger] = b & register.TriggerClockExternal
}

func (m *MockChip) WriteRead(ctx context.Context, w []byte, r []byte) error {
	if len(w) != 1 {
		return fmt.Errorf("%w: register pointer must be one byte, got %d", ErrInvalidArgument, len(w))
	}
	err := m.enter(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.leave()
	if err != nil {
		return err
	}
	reg := register.Address(w[0])
	if m.closed {
		m.log = append(m.log, Tx{Register: reg})
		return errMockClosed
	}
	if err, ok := m.failRead[reg]; ok {
		m.log = append(m.log, Tx{Register: reg})
		return err
	}
	for i := range r {
		r[i] = m.regs[byte(reg)+byte(i)]
	}
	m.log = append(m.log, Tx{Register: reg, Data: append([]byte(nil), r...)})
	return nil
}
