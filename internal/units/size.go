// file: internal/units/size.go
// version: 1.0.0
// guid: 980164e5-674a-400e-844d-2b17441f7920

package units

import (
	"encoding/json"
	"fmt"
)

// Unit is a binary byte-quantity unit (multiples of 1024).
type Unit int64

const (
	Bytes     Unit = 1
	Kilobytes Unit = 1024 * Bytes
	Megabytes Unit = 1024 * Kilobytes
	Gigabytes Unit = 1024 * Megabytes
)

// String returns the short suffix used when formatting sizes.
func (u Unit) String() string {
	switch u {
	case Bytes:
		return "bytes"
	case Kilobytes:
		return "KB"
	case Megabytes:
		return "MB"
	case Gigabytes:
		return "GB"
	default:
		return fmt.Sprintf("unit(%d)", int64(u))
	}
}

// Size is an immutable byte quantity. It is stored normalized to bytes so
// values built from different units compare and add without conversion.
// A negative magnitude is a sentinel for "could not be determined" and is
// passed through arithmetic and formatting unchanged; callers must treat
// negative sizes as failures, never as real memory figures.
type Size struct {
	bytes int64
}

// Zero is the zero byte quantity.
var Zero = Size{}

// NewSize builds a Size from a magnitude expressed in the given unit.
func NewSize(value int64, unit Unit) Size {
	return Size{bytes: value * int64(unit)}
}

// Bytes returns the quantity in bytes.
func (s Size) Bytes() int64 {
	return s.bytes
}

// In converts to the given unit using truncating integer division.
func (s Size) In(unit Unit) int64 {
	return s.bytes / int64(unit)
}

// InF converts to the given unit as a float; precision may be lost for
// very large magnitudes.
func (s Size) InF(unit Unit) float64 {
	return float64(s.bytes) / float64(unit)
}

// Add returns s + other.
func (s Size) Add(other Size) Size {
	return Size{bytes: s.bytes + other.bytes}
}

// Sub returns s - other.
func (s Size) Sub(other Size) Size {
	return Size{bytes: s.bytes - other.bytes}
}

// Scale returns s multiplied by a fraction, truncated to whole bytes.
func (s Size) Scale(f float64) Size {
	return Size{bytes: int64(float64(s.bytes) * f)}
}

// Cmp compares byte-normalized magnitudes: -1 if s < other, 0 if equal,
// +1 if s > other.
func (s Size) Cmp(other Size) int {
	switch {
	case s.bytes < other.bytes:
		return -1
	case s.bytes > other.bytes:
		return 1
	default:
		return 0
	}
}

// Less reports s < other.
func (s Size) Less(other Size) bool { return s.bytes < other.bytes }

// Greater reports s > other.
func (s Size) Greater(other Size) bool { return s.bytes > other.bytes }

// GreaterOrEqual reports s >= other.
func (s Size) GreaterOrEqual(other Size) bool { return s.bytes >= other.bytes }

// IsNegative reports whether the size carries the failure sentinel.
func (s Size) IsNegative() bool { return s.bytes < 0 }

// String formats the quantity using the largest unit with a whole part,
// e.g. "1.50 GB" or "512.00 KB". Negative sentinels print as raw bytes.
func (s Size) String() string {
	if s.bytes < 0 {
		return fmt.Sprintf("%d bytes", s.bytes)
	}
	switch {
	case s.bytes >= int64(Gigabytes):
		return fmt.Sprintf("%.2f GB", s.InF(Gigabytes))
	case s.bytes >= int64(Megabytes):
		return fmt.Sprintf("%.2f MB", s.InF(Megabytes))
	case s.bytes >= int64(Kilobytes):
		return fmt.Sprintf("%.2f KB", s.InF(Kilobytes))
	default:
		return fmt.Sprintf("%d bytes", s.bytes)
	}
}

// MarshalJSON encodes the size as its byte count.
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.bytes)
}

// UnmarshalJSON decodes a byte count.
func (s *Size) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.bytes)
}
