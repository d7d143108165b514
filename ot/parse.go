// Package ot implements the OpenType layout-table plumbing around
// glyph coverage digests: Coverage table parsing, digest population
// from coverage records, and a GSUB lookup-application skeleton that
// consults digests to skip glyphs before the exact coverage lookup.
package ot

import (
	"encoding/binary"
	"errors"
)

// Common errors
var (
	ErrInvalidFont   = errors.New("invalid font data")
	ErrInvalidTable  = errors.New("invalid table data")
	ErrInvalidOffset = errors.New("offset out of bounds")
	ErrInvalidFormat = errors.New("unsupported format")
	ErrTableNotFound = errors.New("table not found")
)

// GlyphID represents a glyph index.
type GlyphID = uint16

// Tag is a 4-byte OpenType tag.
type Tag uint32

// MakeTag creates a Tag from 4 bytes.
func MakeTag(a, b, c, d byte) Tag {
	return Tag(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// String returns the tag as a 4-character string.
func (t Tag) String() string {
	return string([]byte{
		byte(t >> 24),
		byte(t >> 16),
		byte(t >> 8),
		byte(t),
	})
}

// Layout table tags
var (
	TagGDEF = MakeTag('G', 'D', 'E', 'F')
	TagGSUB = MakeTag('G', 'S', 'U', 'B')
	TagGPOS = MakeTag('G', 'P', 'O', 'S')
)

// Parser provides methods for reading binary OpenType data.
type Parser struct {
	data []byte
	off  int
}

// NewParser creates a parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Data returns the underlying byte slice.
func (p *Parser) Data() []byte {
	return p.data
}

// Offset returns the current offset.
func (p *Parser) Offset() int {
	return p.off
}

// SetOffset sets the current offset.
func (p *Parser) SetOffset(off int) error {
	if off < 0 || off > len(p.data) {
		return ErrInvalidOffset
	}
	p.off = off
	return nil
}

// Skip advances the offset by n bytes.
func (p *Parser) Skip(n int) error {
	if p.off+n > len(p.data) {
		return ErrInvalidOffset
	}
	p.off += n
	return nil
}

// U16 reads a big-endian uint16 and advances.
func (p *Parser) U16() (uint16, error) {
	if p.off+2 > len(p.data) {
		return 0, ErrInvalidOffset
	}
	v := binary.BigEndian.Uint16(p.data[p.off:])
	p.off += 2
	return v, nil
}

// U32 reads a big-endian uint32 and advances.
func (p *Parser) U32() (uint32, error) {
	if p.off+4 > len(p.data) {
		return 0, ErrInvalidOffset
	}
	v := binary.BigEndian.Uint32(p.data[p.off:])
	p.off += 4
	return v, nil
}

// Tag reads a 4-byte tag and advances.
func (p *Parser) Tag() (Tag, error) {
	v, err := p.U32()
	return Tag(v), err
}

// U16At reads a big-endian uint16 at the given offset (doesn't advance).
func (p *Parser) U16At(off int) (uint16, error) {
	if off+2 > len(p.data) {
		return 0, ErrInvalidOffset
	}
	return binary.BigEndian.Uint16(p.data[off:]), nil
}
