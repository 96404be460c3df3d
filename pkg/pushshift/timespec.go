package pushshift

import (
	"fmt"
	"strconv"
)

// Time is a value for the before/after parameters: either a span relative to
// now ("30d") or an absolute UTC epoch in seconds.
type Time struct {
	n    uint64
	unit byte // 0 for an absolute epoch
}

func Seconds(n uint32) Time { return Time{n: uint64(n), unit: 's'} }
func Minutes(n uint32) Time { return Time{n: uint64(n), unit: 'm'} }
func Hours(n uint32) Time   { return Time{n: uint64(n), unit: 'h'} }
func Days(n uint32) Time    { return Time{n: uint64(n), unit: 'd'} }
func Weeks(n uint32) Time   { return Time{n: uint64(n), unit: 'w'} }
func Years(n uint32) Time   { return Time{n: uint64(n), unit: 'y'} }

// Epoch is an absolute point in time.
func Epoch(sec uint64) Time { return Time{n: sec} }

// IsEpoch reports whether t is absolute.
func (t Time) IsEpoch() bool {
	return t.unit == 0
}

func (t Time) String() string {
	if t.unit == 0 {
		return strconv.FormatUint(t.n, 10)
	}
	return strconv.FormatUint(t.n, 10) + string(t.unit)
}

// ParseTime accepts "<n>s|m|h|d|w|y" or a bare epoch.
func ParseTime(s string) (Time, error) {
	if s == "" {
		return Time{}, fmt.Errorf("empty time value")
	}

	last := s[len(s)-1]
	switch last {
	case 's', 'm', 'h', 'd', 'w', 'y':
		n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
		if err != nil {
			return Time{}, fmt.Errorf("invalid relative time %q: %w", s, err)
		}
		return Time{n: n, unit: last}, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Epoch(n), nil
}
