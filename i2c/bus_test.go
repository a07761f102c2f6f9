package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestDevConn_WriteRead(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{0x00}, R: []byte{0xA0}},
			{Addr: 0x28, W: []byte{0x3D, 0x0C}},
		},
		DontPanic: true,
	}
	bus := NewBus(pb)
	conn, err := bus.Open(context.Background(), "playback", 0x28)
	require.NoError(t, err)

	id := make([]byte, 1)
	require.NoError(t, conn.WriteRead(context.Background(), []byte{0x00}, id))
	assert.Equal(t, byte(0xA0), id[0])
	require.NoError(t, conn.Write(context.Background(), []byte{0x3D, 0x0C}))
	assert.NoError(t, bus.Close())
}

func TestDevConn_UnexpectedTransfer(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x28, W: []byte{0x00}, R: []byte{0xA0}}},
		DontPanic: true,
	}
	conn, err := NewBus(pb).Open(context.Background(), "playback", 0x29)
	require.NoError(t, err)

	err = conn.WriteRead(context.Background(), []byte{0x00}, make([]byte, 1))
	assert.ErrorContains(t, err, "0x29")
}

func TestGenericBus_ReadWrite(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{0x08}},
			{Addr: 0x28, R: []byte{0x64, 0x00}},
		},
		DontPanic: true,
	}
	bus := NewBus(pb)
	require.NoError(t, bus.WriteToAddr(context.Background(), 0x28, []byte{0x08}))
	buf := make([]byte, 2)
	require.NoError(t, bus.ReadFromAddr(context.Background(), 0x28, buf))
	assert.Equal(t, []byte{0x64, 0x00}, buf)
	assert.NoError(t, bus.Release(context.Background()))
}

func TestGenericBus_InvalidAddress(t *testing.T) {
	_, err := NewBus(&i2ctest.Playback{}).Open(context.Background(), "playback", 0x80)
	assert.Error(t, err)
}

func TestHost_SharesBuses(t *testing.T) {
	opened := map[string]int{}
	h := &Host{
		buses: make(map[string]*GenericBus),
		open: func(name string) (*GenericBus, error) {
			opened[name]++
			if name == "missing" {
				return nil, errors.New("no such bus")
			}
			return NewBus(&i2ctest.Playback{DontPanic: true}), nil
		},
	}

	_, err := h.Open(context.Background(), "1", 0x28)
	require.NoError(t, err)
	_, err = h.Open(context.Background(), "1", 0x29)
	require.NoError(t, err)
	_, err = h.Open(context.Background(), "2", 0x28)
	require.NoError(t, err)
	assert.Equal(t, 1, opened["1"])
	assert.Equal(t, 1, opened["2"])

	_, err = h.Open(context.Background(), "missing", 0x28)
	assert.Error(t, err)
	_, err = h.Open(context.Background(), "missing", 0x28)
	assert.Error(t, err)
	assert.Equal(t, 2, opened["missing"], "failed opens are not cached")

	require.NoError(t, h.Close())
	assert.Empty(t, h.buses)
}
