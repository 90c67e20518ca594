package nds

import (
	"errors"
	"fmt"
)

// Error categories shared by all codecs. Concrete errors wrap one of
// these sentinels, so callers can classify with errors.Is while still
// getting a message naming the table or region that failed.
var (
	// ErrTruncated means a read would have crossed the end of the
	// input buffer.
	ErrTruncated = errors.New("truncated input")

	// ErrStructure means a table reference (sub-table offset, child
	// directory id, file id) points outside its valid range or
	// violates a filesystem invariant.
	ErrStructure = errors.New("structural error")

	// ErrFormat means a magic value, declared length, or checksum in
	// a container header does not match the data.
	ErrFormat = errors.New("format error")
)

func Truncatedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTruncated, fmt.Sprintf(format, args...))
}

func Structuref(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStructure, fmt.Sprintf(format, args...))
}

func Formatf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
