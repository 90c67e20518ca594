package rom

import (
	"bytes"

	"github.com/rstms/nds"
)

const (
	// HeaderLen is the number of meaningful header bytes; the header
	// region on disk is padded out to HeaderRegionLen.
	HeaderLen       = 0x180
	HeaderRegionLen = 0x200

	// crcEnd is where the header checksum's coverage stops: every
	// byte before the checksum field itself.
	crcEnd = 0x15E
)

// Code describes one processor's binary: where it sits in the image
// and how it is loaded.
type Code struct {
	Offset uint32
	Entry  uint32
	Load   uint32
	Size   uint32
}

// Region is an offset/length pair locating a table within the image.
type Region struct {
	Offset uint32
	Length uint32
}

// Header is the fixed-size record at the start of a cartridge image.
// On build, every offset/length field and both checksums are
// recomputed; the identification and loading fields pass through from
// the template.
type Header struct {
	Title     [12]byte
	GameCode  [4]byte
	MakerCode [2]byte
	UnitCode  uint8

	EncryptionSeed uint8
	Capacity       uint8
	Reserved1      [7]byte
	Revision       uint16
	Version        uint8
	Flags          uint8

	Arm9 Code
	Arm7 Code

	FNT         Region
	FAT         Region
	Arm9Overlay Region
	Arm7Overlay Region

	NormalCardControl uint32
	SecureCardControl uint32
	IconOffset        uint32
	SecureCRC         uint16
	SecureTimeout     uint16
	Arm9Autoload      uint32
	Arm7Autoload      uint32
	SecureDisable     uint64
	NTRSize           uint32
	HeaderSize        uint32
	Reserved2         [56]byte

	Logo      [156]byte
	LogoCRC   uint16
	HeaderCRC uint16
	Debugger  [32]byte
}

// DecodeHeader parses the fixed header block at the start of an
// image. Checksums are read, not verified; they are exposed so the
// caller can decide how strict to be.
func DecodeHeader(data []byte) (*Header, error) {
	cur := nds.NewCursor(data, "cartridge header")
	h := &Header{}

	take := func(dst []byte) error {
		b, err := cur.Bytes(len(dst))
		if err != nil {
			return err
		}
		copy(dst, b)
		return nil
	}

	if err := take(h.Title[:]); err != nil {
		return nil, err
	}
	if err := take(h.GameCode[:]); err != nil {
		return nil, err
	}
	if err := take(h.MakerCode[:]); err != nil {
		return nil, err
	}

	var err error
	if h.UnitCode, err = cur.U8(); err != nil {
		return nil, err
	}
	if h.EncryptionSeed, err = cur.U8(); err != nil {
		return nil, err
	}
	if h.Capacity, err = cur.U8(); err != nil {
		return nil, err
	}
	if err = take(h.Reserved1[:]); err != nil {
		return nil, err
	}
	if h.Revision, err = cur.U16(); err != nil {
		return nil, err
	}
	if h.Version, err = cur.U8(); err != nil {
		return nil, err
	}
	if h.Flags, err = cur.U8(); err != nil {
		return nil, err
	}

	readCode := func(c *Code) error {
		for _, p := range []*uint32{&c.Offset, &c.Entry, &c.Load, &c.Size} {
			if *p, err = cur.U32(); err != nil {
				return err
			}
		}
		return nil
	}
	readRegion := func(r *Region) error {
		if r.Offset, err = cur.U32(); err != nil {
			return err
		}
		r.Length, err = cur.U32()
		return err
	}

	if err = readCode(&h.Arm9); err != nil {
		return nil, err
	}
	if err = readCode(&h.Arm7); err != nil {
		return nil, err
	}
	for _, r := range []*Region{&h.FNT, &h.FAT, &h.Arm9Overlay, &h.Arm7Overlay} {
		if err = readRegion(r); err != nil {
			return nil, err
		}
	}

	if h.NormalCardControl, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.SecureCardControl, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.IconOffset, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.SecureCRC, err = cur.U16(); err != nil {
		return nil, err
	}
	if h.SecureTimeout, err = cur.U16(); err != nil {
		return nil, err
	}
	if h.Arm9Autoload, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.Arm7Autoload, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.SecureDisable, err = cur.U64(); err != nil {
		return nil, err
	}
	if h.NTRSize, err = cur.U32(); err != nil {
		return nil, err
	}
	if h.HeaderSize, err = cur.U32(); err != nil {
		return nil, err
	}
	if err = take(h.Reserved2[:]); err != nil {
		return nil, err
	}
	if err = take(h.Logo[:]); err != nil {
		return nil, err
	}
	if h.LogoCRC, err = cur.U16(); err != nil {
		return nil, err
	}
	if h.HeaderCRC, err = cur.U16(); err != nil {
		return nil, err
	}
	if err = take(h.Debugger[:]); err != nil {
		return nil, err
	}

	if bytes.Count(h.Title[:], []byte{0}) == len(h.Title) &&
		bytes.Count(h.GameCode[:], []byte{0}) == len(h.GameCode) &&
		bytes.Count(h.MakerCode[:], []byte{0}) == len(h.MakerCode) {
		return nil, nds.Formatf("cartridge header has blank title, game code, and maker code")
	}
	return h, nil
}

// Encode serializes the header's meaningful bytes. Checksum fields
// are written as stored; use Checksum to recompute.
func (h *Header) Encode() []byte {
	w := nds.NewWriter()
	w.Bytes(h.Title[:])
	w.Bytes(h.GameCode[:])
	w.Bytes(h.MakerCode[:])
	w.U8(h.UnitCode)
	w.U8(h.EncryptionSeed)
	w.U8(h.Capacity)
	w.Bytes(h.Reserved1[:])
	w.U16(h.Revision)
	w.U8(h.Version)
	w.U8(h.Flags)
	for _, c := range []Code{h.Arm9, h.Arm7} {
		w.U32(c.Offset)
		w.U32(c.Entry)
		w.U32(c.Load)
		w.U32(c.Size)
	}
	for _, r := range []Region{h.FNT, h.FAT, h.Arm9Overlay, h.Arm7Overlay} {
		w.U32(r.Offset)
		w.U32(r.Length)
	}
	w.U32(h.NormalCardControl)
	w.U32(h.SecureCardControl)
	w.U32(h.IconOffset)
	w.U16(h.SecureCRC)
	w.U16(h.SecureTimeout)
	w.U32(h.Arm9Autoload)
	w.U32(h.Arm7Autoload)
	w.U64(h.SecureDisable)
	w.U32(h.NTRSize)
	w.U32(h.HeaderSize)
	w.Bytes(h.Reserved2[:])
	w.Bytes(h.Logo[:])
	w.U16(h.LogoCRC)
	w.U16(h.HeaderCRC)
	w.Bytes(h.Debugger[:])
	return w.Buffer()
}

// Checksum computes the header checksum over the encoded bytes that
// precede the checksum field.
func (h *Header) Checksum() uint16 {
	return CRC16(h.Encode()[:crcEnd])
}
