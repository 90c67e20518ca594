package nds

import (
	"encoding/binary"
)

// Cursor is a bounds-checked little-endian reader over a byte buffer.
// Every read is validated against the remaining length and fails with
// ErrTruncated naming the scope the cursor was created for.
type Cursor struct {
	buf   []byte
	pos   int
	scope string
}

func NewCursor(buf []byte, scope string) *Cursor {
	return &Cursor{buf: buf, scope: scope}
}

func (c *Cursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return Truncatedf("%s: need %d bytes at offset %d, have %d",
			c.scope, n, c.pos, len(c.buf)-c.pos)
	}
	return nil
}

func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// Bytes returns a view of the next n bytes; the caller must not
// modify them.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// Seek moves the cursor to an absolute offset within the buffer.
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.buf) {
		return Truncatedf("%s: seek to offset %d outside buffer of %d bytes",
			c.scope, offset, len(c.buf))
	}
	c.pos = offset
	return nil
}

func (c *Cursor) Pos() int {
	return c.pos
}

func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Writer accumulates little-endian output and supports padding and
// offset back-patching for headers whose fields are computed after
// the regions they describe.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Zero appends n zero bytes, reserving space to be back-patched later.
func (w *Writer) Zero(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

// Pad fills with the given byte up to the next multiple of align.
func (w *Writer) Pad(align int, fill byte) {
	if align <= 1 {
		return
	}
	for len(w.buf)%align != 0 {
		w.buf = append(w.buf, fill)
	}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// PutU16 back-patches a previously written (or reserved) position.
func (w *Writer) PutU16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[offset:], v)
}

func (w *Writer) PutU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[offset:], v)
}

func (w *Writer) Buffer() []byte {
	return w.buf
}
