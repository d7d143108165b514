// Package digest implements approximate membership filters for glyph
// coverage queries.
//
// The filters here are conceptually like Bloom filters, but much
// smaller and cheaper: a membership check is four bitwise operations
// on a single machine word. A filter is populated once from a
// lookup's coverage records; afterwards, asking MayHave before the
// exact coverage lookup lets the caller skip most glyphs a lookup
// cannot possibly apply to.
//
// False positives are expected (they only cost an unnecessary exact
// lookup). False negatives never occur: if MayHave returns false, the
// value was never added.
//
// Filters are not safe for concurrent mutation; callers serialize
// Add* calls. Concurrent MayHave against a filter that is not being
// mutated needs no synchronization.
package digest

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Codepoint is a Unicode codepoint or glyph ID. Filters use it purely
// as a bit pattern.
type Codepoint = uint32

// Mask is the set of unsigned widths usable as a filter's bucket mask.
type Mask interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// maskBits returns the width of M in bits, which is also the number of
// buckets a BitsPattern over M has.
func maskBits[M Mask]() uint32 {
	return uint32(bits.OnesCount64(uint64(^M(0))))
}

// BitsPattern is a filter over one bit-field of the codepoint space:
// a codepoint hashes to bucket (g >> shift) & (W-1), where W is the
// width of the mask type M, and membership is a single bit in the mask.
//
// The zero value has shift 0 and an empty mask; use NewBitsPattern to
// get any other shift. Filters are plain values owned by their caller
// and carry no state beyond the mask.
type BitsPattern[M Mask] struct {
	shift uint32
	mask  M
}

// NewBitsPattern returns an empty filter with the given shift.
// It panics if the shift plus the bucket index width exceeds the
// 32-bit codepoint domain; that is a construction-time contract
// violation, not a recoverable error.
func NewBitsPattern[M Mask](shift uint32) BitsPattern[M] {
	bucketBits := uint32(bits.Len32(maskBits[M]())) - 1
	if shift+bucketBits > 32 {
		panic(fmt.Sprintf("digest: shift %d + %d bucket bits exceeds 32-bit codepoints", shift, bucketBits))
	}
	return BitsPattern[M]{shift: shift}
}

// maskFor returns the single-bit mask for g's bucket.
func (f *BitsPattern[M]) maskFor(g Codepoint) M {
	return M(1) << ((g >> f.shift) & (maskBits[M]() - 1))
}

// Init resets the filter to empty. The shift is preserved.
func (f *BitsPattern[M]) Init() {
	f.mask = 0
}

// Add adds a single codepoint to the filter.
func (f *BitsPattern[M]) Add(g Codepoint) {
	f.mask |= f.maskFor(g)
}

// AddRange adds every codepoint in [first, last] in constant time.
// An inverted range (first > last) is a no-op and returns false.
func (f *BitsPattern[M]) AddRange(first, last Codepoint) bool {
	if first > last {
		return false
	}
	w := maskBits[M]()
	if (last>>f.shift)-(first>>f.shift) >= w-1 {
		// The range spans every bucket; finer tracking buys nothing.
		f.mask = ^M(0)
		return true
	}
	// Fill the contiguous run of buckets from first's to last's using
	// wraparound subtraction: mb - ma sets the bits below last's bucket
	// down to first's, and adding mb back sets last's bucket itself.
	// The borrow handles runs that wrap past the top bucket.
	ma := f.maskFor(first)
	mb := f.maskFor(last)
	var borrow M
	if mb < ma {
		borrow = 1
	}
	f.mask |= mb + (mb - ma) - borrow
	return true
}

// AddArray adds each codepoint in glyphs to the filter.
func (f *BitsPattern[M]) AddArray(glyphs []Codepoint) {
	for _, g := range glyphs {
		f.Add(g)
	}
}

// AddUint16s adds count big-endian 16-bit glyph records read directly
// from table data at the given byte stride. The data is read in place
// and never retained.
func (f *BitsPattern[M]) AddUint16s(data []byte, count, stride int) {
	for i := 0; i < count; i++ {
		f.Add(Codepoint(binary.BigEndian.Uint16(data[i*stride:])))
	}
}

// AddSortedUint16s is AddUint16s for records known to be sorted, such
// as coverage format 1 glyph arrays. Sortedness is not currently
// exploited; the call exists so sites record what the table guarantees.
func (f *BitsPattern[M]) AddSortedUint16s(data []byte, count, stride int) {
	f.AddUint16s(data, count, stride)
}

// MayHave reports whether g may have been added to the filter.
// A false result is definitive; a true result may be a bucket
// collision with another added value.
func (f *BitsPattern[M]) MayHave(g Codepoint) bool {
	return f.mask&f.maskFor(g) != 0
}
