package digest

// Batch queries answer "may any of these eight codepoints be in the
// set" in one call, so a caller walking a glyph run can skip whole
// batches before probing individual glyphs.
//
// Two kernels exist. The wide kernel folds the eight lane masks
// together and tests the filter mask once, with no branches per lane.
// The scalar loop is the reference implementation; it is always
// available and the two are bit-for-bit equivalent. Selection happens
// once at init, see capability.go.

// MayHaveBatch reports whether any of the eight codepoints may be in
// the filter. The result equals the OR of eight scalar MayHave calls.
func (f *BitsPattern[M]) MayHaveBatch(g *[8]Codepoint) bool {
	if useWideKernel {
		return f.mayHaveBatchWide(g)
	}
	return f.mayHaveBatchScalar(g)
}

// mayHaveBatchScalar is the reference kernel.
func (f *BitsPattern[M]) mayHaveBatchScalar(g *[8]Codepoint) bool {
	for _, c := range g {
		if f.MayHave(c) {
			return true
		}
	}
	return false
}

// mayHaveBatchWide computes all eight lane masks up front, ORs them
// into one word and performs a single AND against the filter mask.
func (f *BitsPattern[M]) mayHaveBatchWide(g *[8]Codepoint) bool {
	lanes := f.maskFor(g[0]) | f.maskFor(g[1]) | f.maskFor(g[2]) | f.maskFor(g[3]) |
		f.maskFor(g[4]) | f.maskFor(g[5]) | f.maskFor(g[6]) | f.maskFor(g[7])
	return f.mask&lanes != 0
}
