package rom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/MODBUS check value.
	require.Equal(t, uint16(0x4B37), CRC16([]byte("123456789")))
}

func TestCRC16Empty(t *testing.T) {
	require.Equal(t, uint16(0xFFFF), CRC16(nil))
}
