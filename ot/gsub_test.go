package ot

import (
	"encoding/binary"
	"testing"
)

// Helper to build a SingleSubst Format 1 subtable
func buildSingleSubstFormat1(coverageGlyphs []GlyphID, delta int16) []byte {
	coverage := buildCoverageFormat1(coverageGlyphs)

	// SingleSubstFormat1: format(2) + coverageOffset(2) + deltaGlyphID(2)
	subtable := make([]byte, 6+len(coverage))
	binary.BigEndian.PutUint16(subtable[0:], 1) // format
	binary.BigEndian.PutUint16(subtable[2:], 6) // coverage offset (right after header)
	binary.BigEndian.PutUint16(subtable[4:], uint16(delta))
	copy(subtable[6:], coverage)
	return subtable
}

// Helper to build a SingleSubst Format 2 subtable
func buildSingleSubstFormat2(coverageGlyphs []GlyphID, substitutes []GlyphID) []byte {
	coverage := buildCoverageFormat1(coverageGlyphs)

	// SingleSubstFormat2: format(2) + coverageOffset(2) + glyphCount(2) + substituteGlyphIDs
	headerSize := 6 + len(substitutes)*2
	subtable := make([]byte, headerSize+len(coverage))
	binary.BigEndian.PutUint16(subtable[0:], 2)                  // format
	binary.BigEndian.PutUint16(subtable[2:], uint16(headerSize)) // coverage offset
	binary.BigEndian.PutUint16(subtable[4:], uint16(len(substitutes)))
	for i, s := range substitutes {
		binary.BigEndian.PutUint16(subtable[6+i*2:], uint16(s))
	}
	copy(subtable[headerSize:], coverage)
	return subtable
}

// Helper to build a Ligature
func buildLigature(ligGlyph GlyphID, components []GlyphID) []byte {
	data := make([]byte, 4+len(components)*2)
	binary.BigEndian.PutUint16(data[0:], uint16(ligGlyph))
	binary.BigEndian.PutUint16(data[2:], uint16(len(components)+1)) // +1 for first glyph
	for i, c := range components {
		binary.BigEndian.PutUint16(data[4+i*2:], uint16(c))
	}
	return data
}

// Helper to build a LigatureSet
func buildLigatureSet(ligatures [][]byte) []byte {
	headerSize := 2 + len(ligatures)*2
	totalSize := headerSize
	for _, lig := range ligatures {
		totalSize += len(lig)
	}

	data := make([]byte, totalSize)
	binary.BigEndian.PutUint16(data[0:], uint16(len(ligatures)))

	offset := headerSize
	for i, lig := range ligatures {
		binary.BigEndian.PutUint16(data[2+i*2:], uint16(offset))
		copy(data[offset:], lig)
		offset += len(lig)
	}
	return data
}

// Helper to build a LigatureSubst subtable
func buildLigatureSubst(coverageGlyphs []GlyphID, ligatureSets [][]byte) []byte {
	coverage := buildCoverageFormat1(coverageGlyphs)

	// LigatureSubstFormat1: format(2) + coverageOffset(2) + ligSetCount(2) + ligSetOffsets + ligSets + coverage
	headerSize := 6 + len(ligatureSets)*2
	totalSize := headerSize
	for _, ls := range ligatureSets {
		totalSize += len(ls)
	}
	totalSize += len(coverage)

	data := make([]byte, totalSize)
	binary.BigEndian.PutUint16(data[0:], 1) // format
	binary.BigEndian.PutUint16(data[4:], uint16(len(ligatureSets)))

	offset := headerSize
	for i, ls := range ligatureSets {
		binary.BigEndian.PutUint16(data[6+i*2:], uint16(offset))
		copy(data[offset:], ls)
		offset += len(ls)
	}

	// Coverage offset
	binary.BigEndian.PutUint16(data[2:], uint16(offset))
	copy(data[offset:], coverage)

	return data
}

// Build a GSUB lookup wrapper
func buildGSUBLookup(lookupType uint16, subtables [][]byte) []byte {
	// Lookup: type(2) + flag(2) + subtableCount(2) + offsets + subtables
	headerSize := 6 + len(subtables)*2
	totalSize := headerSize
	for _, st := range subtables {
		totalSize += len(st)
	}

	data := make([]byte, totalSize)
	binary.BigEndian.PutUint16(data[0:], lookupType)
	binary.BigEndian.PutUint16(data[2:], 0) // flag
	binary.BigEndian.PutUint16(data[4:], uint16(len(subtables)))

	offset := headerSize
	for i, st := range subtables {
		binary.BigEndian.PutUint16(data[6+i*2:], uint16(offset))
		copy(data[offset:], st)
		offset += len(st)
	}

	return data
}

// Build a full GSUB table with empty script/feature lists.
func buildGSUBTable(lookups [][]byte) []byte {
	headerSize := 10
	scriptListSize := 2
	featureListSize := 2

	lookupListHeaderSize := 2 + len(lookups)*2
	lookupListSize := lookupListHeaderSize
	for _, l := range lookups {
		lookupListSize += len(l)
	}

	totalSize := headerSize + scriptListSize + featureListSize + lookupListSize
	data := make([]byte, totalSize)

	binary.BigEndian.PutUint16(data[0:], 1)                                                 // version major
	binary.BigEndian.PutUint16(data[2:], 0)                                                 // version minor
	binary.BigEndian.PutUint16(data[4:], uint16(headerSize))                                // scriptList offset
	binary.BigEndian.PutUint16(data[6:], uint16(headerSize+scriptListSize))                 // featureList offset
	binary.BigEndian.PutUint16(data[8:], uint16(headerSize+scriptListSize+featureListSize)) // lookupList offset

	// Empty ScriptList and FeatureList
	binary.BigEndian.PutUint16(data[headerSize:], 0)
	binary.BigEndian.PutUint16(data[headerSize+scriptListSize:], 0)

	// LookupList
	lookupListOff := headerSize + scriptListSize + featureListSize
	binary.BigEndian.PutUint16(data[lookupListOff:], uint16(len(lookups)))

	offset := lookupListHeaderSize
	for i, l := range lookups {
		binary.BigEndian.PutUint16(data[lookupListOff+2+i*2:], uint16(offset))
		copy(data[lookupListOff+offset:], l)
		offset += len(l)
	}

	return data
}

func TestSingleSubstFormat1(t *testing.T) {
	// A, B, C (65, 66, 67) -> 100 added = 165, 166, 167
	coverageGlyphs := []GlyphID{65, 66, 67}
	data := buildSingleSubstFormat1(coverageGlyphs, 100)

	subst, err := parseSingleSubst(data, 0)
	if err != nil {
		t.Fatalf("parseSingleSubst failed: %v", err)
	}

	tests := []struct {
		input  GlyphID
		want   GlyphID
		wantOK bool
	}{
		{65, 165, true},
		{66, 166, true},
		{67, 167, true},
		{68, 0, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		ctx := &GSUBContext{
			Glyphs: []GlyphID{tt.input},
			Index:  0,
		}

		result := subst.Apply(ctx)
		if tt.wantOK {
			if result == 0 {
				t.Errorf("Apply(%d) did not apply", tt.input)
				continue
			}
			if ctx.Glyphs[0] != tt.want {
				t.Errorf("Apply(%d) = %d, want %d", tt.input, ctx.Glyphs[0], tt.want)
			}
		} else if result != 0 {
			t.Errorf("Apply(%d) applied, want not covered", tt.input)
		}
	}
}

func TestSingleSubstFormat2(t *testing.T) {
	coverageGlyphs := []GlyphID{10, 20, 30}
	substitutes := []GlyphID{110, 120, 130}
	data := buildSingleSubstFormat2(coverageGlyphs, substitutes)

	subst, err := parseSingleSubst(data, 0)
	if err != nil {
		t.Fatalf("parseSingleSubst failed: %v", err)
	}

	for i, g := range coverageGlyphs {
		ctx := &GSUBContext{Glyphs: []GlyphID{g}, Index: 0}
		if subst.Apply(ctx) == 0 {
			t.Errorf("Apply(%d) did not apply", g)
			continue
		}
		if ctx.Glyphs[0] != substitutes[i] {
			t.Errorf("Apply(%d) = %d, want %d", g, ctx.Glyphs[0], substitutes[i])
		}
	}

	ctx := &GSUBContext{Glyphs: []GlyphID{15}, Index: 0}
	if subst.Apply(ctx) != 0 {
		t.Error("Apply(15) applied, want not covered")
	}
}

func TestParseGSUB(t *testing.T) {
	subtable := buildSingleSubstFormat1([]GlyphID{65, 66}, 10)
	lookup := buildGSUBLookup(GSUBTypeSingle, [][]byte{subtable})
	gsubData := buildGSUBTable([][]byte{lookup})

	gsub, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}

	if gsub.NumLookups() != 1 {
		t.Errorf("NumLookups = %d, want 1", gsub.NumLookups())
	}

	glyphs := []GlyphID{65, 66, 67}
	result := gsub.ApplyLookup(0, glyphs)

	want := []GlyphID{75, 76, 67} // 65+10, 66+10, 67 unchanged
	if len(result) != len(want) {
		t.Fatalf("got %d glyphs, want %d", len(result), len(want))
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %d, want %d", i, result[i], want[i])
		}
	}
}

func TestGSUBApplyLigature(t *testing.T) {
	// f+i -> fi ligature
	lig := buildLigature(200, []GlyphID{105})
	ligSet := buildLigatureSet([][]byte{lig})
	subtable := buildLigatureSubst([]GlyphID{102}, [][]byte{ligSet})
	lookup := buildGSUBLookup(GSUBTypeLigature, [][]byte{subtable})
	gsubData := buildGSUBTable([][]byte{lookup})

	gsub, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}

	glyphs := []GlyphID{102, 105, 102, 105} // f i f i
	result := gsub.ApplyLookup(0, glyphs)

	want := []GlyphID{200, 200} // fi fi
	if len(result) != len(want) {
		t.Fatalf("got %d glyphs (%v), want %d (%v)", len(result), result, len(want), want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %d, want %d", i, result[i], want[i])
		}
	}
}

func TestGSUBExtensionLookup(t *testing.T) {
	// Extension wrapper: extFormat(2) + extensionLookupType(2) + extensionOffset(4)
	inner := buildSingleSubstFormat1([]GlyphID{40}, 5)
	subtable := make([]byte, 8+len(inner))
	binary.BigEndian.PutUint16(subtable[0:], 1)
	binary.BigEndian.PutUint16(subtable[2:], GSUBTypeSingle)
	binary.BigEndian.PutUint32(subtable[4:], 8)
	copy(subtable[8:], inner)

	lookup := buildGSUBLookup(GSUBTypeExtension, [][]byte{subtable})
	gsubData := buildGSUBTable([][]byte{lookup})

	gsub, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}

	result := gsub.ApplyLookup(0, []GlyphID{40, 41})
	want := []GlyphID{45, 41}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %d, want %d", i, result[i], want[i])
		}
	}
}

// The lookup digest must admit every covered glyph and is expected to
// reject at least some glyph in a sparse sequence, otherwise pruning
// never fires.
func TestLookupDigestGating(t *testing.T) {
	subtable := buildSingleSubstFormat2([]GlyphID{1000, 2000}, []GlyphID{1001, 2001})
	lookup := buildGSUBLookup(GSUBTypeSingle, [][]byte{subtable})
	gsubData := buildGSUBTable([][]byte{lookup})

	gsub, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}

	l := gsub.GetLookup(0)
	if !l.MayHave(1000) || !l.MayHave(2000) {
		t.Error("lookup digest rejects a covered glyph")
	}
	if l.MayHave(0) {
		t.Error("lookup digest admits glyph 0, expected all three partitions to differ")
	}
}

// Digest pruning must be invisible in the output: saturating every
// digest (so nothing is ever skipped) and applying the same lookup to
// the same long sequence gives identical results.
func TestApplyLookupPruningInvisible(t *testing.T) {
	subtable := buildSingleSubstFormat1([]GlyphID{300, 301, 302}, 50)
	lookup := buildGSUBLookup(GSUBTypeSingle, [][]byte{subtable})
	gsubData := buildGSUBTable([][]byte{lookup})

	// Sequence long enough for both batch skips and scalar skips.
	var glyphs []GlyphID
	for i := 0; i < 64; i++ {
		glyphs = append(glyphs, GlyphID(5000+i))
	}
	glyphs = append(glyphs, 300, 7, 301, 8, 9, 302)
	for i := 0; i < 9; i++ {
		glyphs = append(glyphs, GlyphID(6000+i))
	}

	pruned, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}
	unpruned, err := ParseGSUB(gsubData)
	if err != nil {
		t.Fatalf("ParseGSUB failed: %v", err)
	}
	saturateDigests(unpruned)

	got := pruned.ApplyLookup(0, append([]GlyphID(nil), glyphs...))
	want := unpruned.ApplyLookup(0, append([]GlyphID(nil), glyphs...))

	if len(got) != len(want) {
		t.Fatalf("pruned %d glyphs, unpruned %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d]: pruned %d, unpruned %d", i, got[i], want[i])
		}
	}
}

// saturateDigests floods every digest in the table so MayHave is
// always true and pruning becomes a no-op.
func saturateDigests(g *GSUB) {
	for _, l := range g.lookups {
		if l == nil {
			continue
		}
		l.digest.AddRange(0, ^uint32(0))
		for _, st := range l.subtables {
			switch s := st.(type) {
			case *SingleSubst:
				s.digest.AddRange(0, ^uint32(0))
			case *LigatureSubst:
				s.digest.AddRange(0, ^uint32(0))
			}
		}
	}
}
