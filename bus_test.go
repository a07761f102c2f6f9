package imu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestBind_WriteRead(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x28), []byte{0x00}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x28), mock.Anything).Return([]byte{0xA0}, nil).Once()

	conn := Bind(bus, 0x28)
	buf := make([]byte, 1)
	require.NoError(t, conn.WriteRead(context.Background(), []byte{0x00}, buf))
	assert.Equal(t, byte(0xA0), buf[0])
	bus.AssertExpectations(t)
}

func TestBind_WriteReadPointerFailure(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x29), mock.Anything).Return(ErrBusBusy).Once()

	conn := Bind(bus, 0x29)
	err := conn.WriteRead(context.Background(), []byte{0x35}, make([]byte, 1))
	assert.True(t, errors.Is(err, ErrBusBusy))
	bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestBind_Write(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x28), []byte{0x3D, 0x0C}).Return(nil).Once()

	conn := Bind(bus, 0x28)
	assert.NoError(t, conn.Write(context.Background(), []byte{0x3D, 0x0C}))
	bus.AssertExpectations(t)
}
