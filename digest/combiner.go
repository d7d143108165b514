package digest

// Filter is the operation set shared by bit-pattern filters and
// combiners. Pointer receivers implement it, so a Combiner names its
// children twice: once as the stored value type and once as the
// pointer type carrying the methods.
type Filter interface {
	Init()
	Add(g Codepoint)
	AddRange(first, last Codepoint) bool
	AddArray(glyphs []Codepoint)
	AddUint16s(data []byte, count, stride int)
	AddSortedUint16s(data []byte, count, stride int)
	MayHave(g Codepoint) bool
	MayHaveBatch(g *[8]Codepoint) bool
}

// Combiner composes two filters into a logical AND. Both children are
// owned by value; every mutation is forwarded to both, so each child
// independently tracks the same input over its own bucket partition.
// Combiners nest, which is how conjunctions of more than two filters
// are built.
type Combiner[H, T any, PH interface {
	*H
	Filter
}, PT interface {
	*T
	Filter
}] struct {
	head H
	tail T
}

// Init resets both children.
func (c *Combiner[H, T, PH, PT]) Init() {
	PH(&c.head).Init()
	PT(&c.tail).Init()
}

// Add adds g to both children.
func (c *Combiner[H, T, PH, PT]) Add(g Codepoint) {
	PH(&c.head).Add(g)
	PT(&c.tail).Add(g)
}

// AddRange adds [first, last] to both children.
// An inverted range is a no-op and returns false.
func (c *Combiner[H, T, PH, PT]) AddRange(first, last Codepoint) bool {
	ok := PH(&c.head).AddRange(first, last)
	return PT(&c.tail).AddRange(first, last) && ok
}

// AddArray adds each codepoint in glyphs to both children.
func (c *Combiner[H, T, PH, PT]) AddArray(glyphs []Codepoint) {
	PH(&c.head).AddArray(glyphs)
	PT(&c.tail).AddArray(glyphs)
}

// AddUint16s adds strided big-endian glyph records to both children.
func (c *Combiner[H, T, PH, PT]) AddUint16s(data []byte, count, stride int) {
	PH(&c.head).AddUint16s(data, count, stride)
	PT(&c.tail).AddUint16s(data, count, stride)
}

// AddSortedUint16s adds sorted strided glyph records to both children.
func (c *Combiner[H, T, PH, PT]) AddSortedUint16s(data []byte, count, stride int) {
	PH(&c.head).AddSortedUint16s(data, count, stride)
	PT(&c.tail).AddSortedUint16s(data, count, stride)
}

// MayHave reports whether both children may have g.
func (c *Combiner[H, T, PH, PT]) MayHave(g Codepoint) bool {
	return PH(&c.head).MayHave(g) && PT(&c.tail).MayHave(g)
}

// MayHaveBatch reports whether both children report a possible match
// somewhere in the batch. See Digest.MayHaveBatch for the exact
// contract.
func (c *Combiner[H, T, PH, PT]) MayHaveBatch(g *[8]Codepoint) bool {
	return PH(&c.head).MayHaveBatch(g) && PT(&c.tail).MayHaveBatch(g)
}

type pattern32 = BitsPattern[uint32]
type tailPair = Combiner[pattern32, pattern32, *pattern32, *pattern32]
type composite = Combiner[pattern32, tailPair, *pattern32, *tailPair]

// Digest is the production glyph filter: a three-way conjunction of
// 32-bit bit-pattern filters at shifts 4, 0 and 9. There is not much
// science to this combination; it is a tuned operating point for
// glyph-ID distributions and should be kept as is. Storage is three
// machine words, and the effective false-positive rate is roughly the
// product of the three partitions' individual rates. The zero value
// degenerates to three identical shift-0 filters; use NewDigest.
type Digest struct {
	composite
}

// NewDigest returns an empty production digest.
func NewDigest() Digest {
	var d Digest
	d.head = NewBitsPattern[uint32](4)
	d.tail.head = NewBitsPattern[uint32](0)
	d.tail.tail = NewBitsPattern[uint32](9)
	return d
}

// MayHaveGlyph reports whether the 16-bit glyph ID may be in the set.
func (d *Digest) MayHaveGlyph(g uint16) bool {
	return d.MayHave(Codepoint(g))
}
