package rom

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rstms/nds"
)

func testHeader() *Header {
	h := &Header{
		UnitCode: 0x00,
		Capacity: 0x07,
		Revision: 0x0001,
		Version:  0x01,
	}
	copy(h.Title[:], "ROUNDTRIP")
	copy(h.GameCode[:], "ATST")
	copy(h.MakerCode[:], "01")
	for i := range h.Logo {
		h.Logo[i] = byte(i * 7)
	}
	h.Arm9 = Code{Offset: 0x200, Entry: 0x02000000, Load: 0x02000000, Size: 0x100}
	h.Arm7 = Code{Offset: 0x400, Entry: 0x02380000, Load: 0x02380000, Size: 0x80}
	return h
}

func TestHeaderEncodeLen(t *testing.T) {
	require.Len(t, testHeader().Encode(), HeaderLen)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := testHeader()
	h.LogoCRC = CRC16(h.Logo[:])
	h.HeaderCRC = h.Checksum()

	decoded, err := DecodeHeader(h.Encode())
	require.Nil(t, err)
	require.Equal(t, h, decoded)

	// Recomputing the checksum over the decoded header matches the
	// stored field.
	require.Equal(t, decoded.HeaderCRC, decoded.Checksum())
}

func TestHeaderChecksumCoversLogoCRC(t *testing.T) {
	h := testHeader()
	before := h.Checksum()
	h.LogoCRC ^= 0xFFFF
	require.NotEqual(t, before, h.Checksum())

	// The header checksum field itself is outside its own coverage.
	h2 := testHeader()
	sum := h2.Checksum()
	h2.HeaderCRC = sum
	require.Equal(t, sum, h2.Checksum())
}

func TestDecodeHeaderTruncated(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 0x100))
	require.ErrorIs(t, err, nds.ErrTruncated)
}

func TestDecodeHeaderBlankIdentity(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderLen))
	require.ErrorIs(t, err, nds.ErrFormat)
}
