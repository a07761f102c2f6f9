package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu"
)

// MockHID is a mock implementation of Device using testify/mock.
type MockHID struct {
	mock.Mock
	requests [][]byte
}

func (m *MockHID) Write(b []byte) (int, error) {
	m.requests = append(m.requests, append([]byte(nil), b...))
	args := m.Called(b[0])
	return args.Int(0), args.Error(1)
}

func (m *MockHID) Read(b []byte) (int, error) {
	args := m.Called()
	if data, ok := args.Get(0).([]byte); ok {
		copy(b, data)
	}
	return args.Int(1), args.Error(2)
}

func (m *MockHID) Close() error {
	return m.Called().Error(0)
}

func report(data ...byte) []byte {
	buf := make([]byte, reportSize)
	copy(buf, data)
	return buf
}

func newTestBridge(dev *MockHID) *MCP2221 {
	return NewMCP2221(func() (Device, error) { return dev, nil }, WithResponseWait(0))
}

func TestMCP2221_WriteToAddr(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", cmdWriteI2CData).Return(reportSize, nil)
	dev.On("Read").Return(report(cmdWriteI2CData, 0x00), reportSize, nil)
	dev.On("Close").Return(nil)

	err := newTestBridge(dev).WriteToAddr(context.Background(), 0x28, []byte{0x3D, 0x0C})
	require.NoError(t, err)
	require.Len(t, dev.requests, 1)
	assert.Equal(t, []byte{0x90, 0x02, 0x00, 0x50, 0x3D, 0x0C, 0x00}, dev.requests[0][:7])
	dev.AssertExpectations(t)
}

func TestMCP2221_WriteToAddrBusy(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", cmdWriteI2CData).Return(reportSize, nil)
	dev.On("Read").Return(report(cmdWriteI2CData, engineBusy), reportSize, nil)
	dev.On("Close").Return(nil)

	err := newTestBridge(dev).WriteToAddr(context.Background(), 0x28, []byte{0x00})
	assert.ErrorIs(t, err, imu.ErrBusBusy)
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", cmdReadI2CData).Return(reportSize, nil)
	dev.On("Write", cmdGetI2CData).Return(reportSize, nil)
	dev.On("Read").Return(report(cmdReadI2CData, 0x00), reportSize, nil).Once()
	dev.On("Read").Return(report(cmdGetI2CData, 0x00, 0x00, 0x02, 0x64, 0x00), reportSize, nil).Once()
	dev.On("Close").Return(nil)

	buf := make([]byte, 2)
	err := newTestBridge(dev).ReadFromAddr(context.Background(), 0x28, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x64, 0x00}, buf)
	require.Len(t, dev.requests, 2)
	assert.Equal(t, []byte{0x91, 0x02, 0x00, 0x51}, dev.requests[0][:4])
	dev.AssertNumberOfCalls(t, "Close", 2)
}

func TestMCP2221_ReadFromAddrFailures(t *testing.T) {
	tests := []struct {
		name     string
		response []byte
	}{
		{"engine error", report(cmdGetI2CData, readError)},
		{"invalid length", report(cmdGetI2CData, 0x00, 0x00, invalidLength)},
		{"short data", report(cmdGetI2CData, 0x00, 0x00, 0x01, 0x64)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := &MockHID{}
			dev.On("Write", mock.Anything).Return(reportSize, nil)
			dev.On("Read").Return(report(cmdReadI2CData, 0x00), reportSize, nil).Once()
			dev.On("Read").Return(test.response, reportSize, nil).Once()
			dev.On("Close").Return(nil)

			err := newTestBridge(dev).ReadFromAddr(context.Background(), 0x28, make([]byte, 2))
			assert.Error(t, err)
		})
	}
}

func TestMCP2221_ShortWrite(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", cmdWriteI2CData).Return(12, nil)
	dev.On("Close").Return(nil)

	err := newTestBridge(dev).WriteToAddr(context.Background(), 0x28, []byte{0x00})
	assert.ErrorContains(t, err, "short write")
}

func TestMCP2221_OpenFailure(t *testing.T) {
	errMissing := errors.New("unplugged")
	bridge := NewMCP2221(func() (Device, error) { return nil, errMissing })

	err := bridge.WriteToAddr(context.Background(), 0x28, []byte{0x00})
	assert.ErrorIs(t, err, errMissing)
}

func TestMCP2221_SetSpeed(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", cmdStatusSetParameters).Return(reportSize, nil)
	dev.On("Read").Return(report(cmdStatusSetParameters, 0x00, 0x00, speedAccepted), reportSize, nil)
	dev.On("Close").Return(nil)

	require.NoError(t, newTestBridge(dev).SetSpeed(context.Background(), 400_000))
	assert.Equal(t, byte(27), dev.requests[0][4])

	assert.Error(t, newTestBridge(dev).SetSpeed(context.Background(), 1_000_000))
}

func TestMCP2221_Conn(t *testing.T) {
	dev := &MockHID{}
	dev.On("Write", mock.Anything).Return(reportSize, nil)
	dev.On("Read").Return(report(cmdWriteI2CData, 0x00), reportSize, nil).Once()
	dev.On("Read").Return(report(cmdReadI2CData, 0x00), reportSize, nil).Once()
	dev.On("Read").Return(report(cmdGetI2CData, 0x00, 0x00, 0x01, 0xA0), reportSize, nil).Once()
	dev.On("Close").Return(nil)
	bridge := newTestBridge(dev)

	conn, err := bridge.Open(context.Background(), "usb", 0x28)
	require.NoError(t, err)
	id := make([]byte, 1)
	require.NoError(t, conn.WriteRead(context.Background(), []byte{0x00}, id))
	assert.Equal(t, byte(0xA0), id[0])
	assert.Equal(t, []byte{0x90, 0x01, 0x00, 0x50, 0x00}, dev.requests[0][:5])

	_, err = bridge.Open(context.Background(), "usb", 0x80)
	assert.Error(t, err)
}

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[9], buf[10] = 0x05, 0x00
	buf[11], buf[12] = 0x03, 0x00
	buf[13] = 2
	buf[14] = 27
	buf[16], buf[17] = 0x50, 0x00
	buf[25] = 1

	status := bufferToStatus(buf)
	assert.Equal(t, uint16(5), status.LastWriteRequestedSize)
	assert.Equal(t, uint16(3), status.LastWriteSentSize)
	assert.Equal(t, 27, status.I2CSpeedDivider)
	assert.Equal(t, "5000", status.CurrentAddress)
	assert.Equal(t, 1, status.ReadPending)
}
