// Package fixedpoint parses and renders decimal values with exactly one
// fractional digit as integer tenths.
package fixedpoint

import (
	"math"
	"strconv"

	"github.com/jittakal/onebrc/internal/errors"
)

// Parse converts b, which must match -?[0-9]+\.[0-9], to tenths.
// No floating point is involved. Values whose tenths do not fit in an
// int64 are malformed.
func Parse(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.ErrEmptyValue
	}

	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i = 1
	}

	// Shortest accepted body is "d.d".
	if len(b)-i < 3 || b[len(b)-2] != '.' {
		return 0, errors.ErrMalformedValue
	}

	var v int64
	for ; i < len(b)-2; i++ {
		c := b[i] - '0'
		if c > 9 || v > (math.MaxInt64-int64(c))/10 {
			return 0, errors.ErrMalformedValue
		}
		v = v*10 + int64(c)
	}

	c := b[len(b)-1] - '0'
	if c > 9 || v > (math.MaxInt64-int64(c))/10 {
		return 0, errors.ErrMalformedValue
	}
	v = v*10 + int64(c)

	if neg {
		v = -v
	}
	return v, nil
}

// AppendTenths appends the decimal rendering of v (e.g. -35 → "-3.5") to dst.
// Zero is always rendered as "0.0".
func AppendTenths(dst []byte, v int64) []byte {
	u := uint64(v)
	if v < 0 {
		dst = append(dst, '-')
		u = uint64(-v)
	}
	dst = strconv.AppendUint(dst, u/10, 10)
	return append(dst, '.', byte('0'+u%10))
}

// Format returns the decimal rendering of v.
func Format(v int64) string {
	return string(AppendTenths(make([]byte, 0, 8), v))
}
