// Package safeconv provides integer conversions that panic or clamp instead of
// silently wrapping.
package safeconv

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustInt64ToUint64 converts int64 to uint64, panics if negative.
// Use only when negative values are logically impossible (sizes, counters).
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}

// ClampUint64ToInt converts uint64 to int, saturating at MaxInt.
func ClampUint64ToInt(v uint64) int {
	if v > uint64(MaxInt) {
		return MaxInt
	}

	return int(v)
}
