package bitmap

import (
	"fmt"
	"math/bits"
)

// fieldsPerChunk is how many bfields make up one cache-line-sized chunk.
// 4 fields * 64 bits = 256 bits per chunk, the typical allocator-page-bitmap
// width.
const fieldsPerChunk = 4

// chunkBits is F*W, the number of index-addressable bits in one chunk.
const chunkBits = fieldsPerChunk * wordBits

// chunk is the L1 unit: an array of bfields, scanned as a group. It has no
// state of its own beyond the fields.
type chunk struct {
	fields [fieldsPerChunk]bfield
}

func decomposeChunk(cidx uint) (field, bit uint) {
	return cidx / wordBits, cidx % wordBits
}

// xset is the single-bit chunk op. maybeAllClear is a hint: when clearing,
// it reports whether the touched field went to zero, which the bitmap layer
// uses to decide whether chunk_all_clear_relaxed is worth checking at all.
func (c *chunk) xset(set bool, cidx uint) (transitioned, maybeAllClear bool) {
	f, bit := decomposeChunk(cidx)
	if set {
		return c.fields[f].set(bit), false
	}
	transitioned, allClear := c.fields[f].clear(bit)
	return transitioned, allClear
}

func (c *chunk) isXset(set bool, cidx uint) bool {
	f, bit := decomposeChunk(cidx)
	m := bitMask(bit)
	if set {
		return c.fields[f].isSetMask(m)
	}
	return c.fields[f].isClearMask(m)
}

// fieldSpan describes the masks touched by a run of n bits starting at
// cidx, one entry per field the run passes through.
type fieldSpan struct {
	field uint
	mask  uint64
}

func chunkSpan(cidx, n uint) []fieldSpan {
	if n == 0 || cidx+n > chunkBits {
		panic(fmt.Sprintf("bitmap: chunk span out of range: cidx=%d n=%d", cidx, n))
	}
	var spans []fieldSpan
	remaining := n
	field, bit := decomposeChunk(cidx)
	for remaining > 0 {
		width := wordBits - bit
		if width > remaining {
			width = remaining
		}
		spans = append(spans, fieldSpan{field: field, mask: maskRange(bit, bit+width)})
		remaining -= width
		field++
		bit = 0
	}
	return spans
}

// xsetN walks the affected fields in order applying per-field masks. Not
// atomic across fields: an observer mid-call may see a partial update.
// Returns whether every targeted bit transitioned, and the total popcount
// of bits that were already in the target state.
func (c *chunk) xsetN(set bool, cidx, n uint) (allTransitioned bool, totalAlreadyXset int) {
	allTransitioned = true
	for _, s := range chunkSpan(cidx, n) {
		var transitioned bool
		var already int
		if set {
			transitioned, already = c.fields[s.field].setMask(s.mask)
		} else {
			transitioned, already = c.fields[s.field].clearMask(s.mask)
		}
		allTransitioned = allTransitioned && transitioned
		totalAlreadyXset += already
	}
	return allTransitioned, totalAlreadyXset
}

// isXsetN reads each affected field relaxed and checks the mask.
func (c *chunk) isXsetN(set bool, cidx, n uint) bool {
	for _, s := range chunkSpan(cidx, n) {
		if set {
			if !c.fields[s.field].isSetMask(s.mask) {
				return false
			}
		} else if !c.fields[s.field].isClearMask(s.mask) {
			return false
		}
	}
	return true
}

// tryXsetN is the atomic-with-rollback multi-field op. On failure, every bit
// in [cidx, cidx+n) is exactly as it was at entry; bits outside that range
// may have changed due to concurrent ops on other bits.
func (c *chunk) tryXsetN(set bool, cidx, n uint) bool {
	spans := chunkSpan(cidx, n)
	applied := 0
	for _, s := range spans {
		var ok bool
		if set {
			ok = c.fields[s.field].trySetMask(s.mask)
		} else {
			ok, _ = c.fields[s.field].tryClearMask(s.mask)
		}
		if !ok {
			// rollback: invert every span already applied. This must succeed
			// because only this call could have moved those exact bits from
			// their pre-call state.
			for i := applied - 1; i >= 0; i-- {
				rb := spans[i]
				if set {
					c.fields[rb.field].clearMask(rb.mask)
				} else {
					c.fields[rb.field].setMask(rb.mask)
				}
			}
			return false
		}
		applied++
	}
	return true
}

// allClearRelaxed ORs every field and tests for zero. Used before chunkmap
// downgrade; a relaxed, best-effort read.
func (c *chunk) allClearRelaxed() bool {
	var acc uint64
	for i := range c.fields {
		acc |= c.fields[i].load()
	}
	return acc == 0
}

// bsr finds the most significant set bit, scanning fields high to low.
func (c *chunk) bsr() (idx uint, ok bool) {
	for f := fieldsPerChunk - 1; f >= 0; f-- {
		v := c.fields[f].load()
		if v == 0 {
			continue
		}
		return uint(f)*wordBits + uint(63-bits.LeadingZeros64(v)), true
	}
	return 0, false
}

func (c *chunk) clearOnceSet(cidx uint) {
	f, bit := decomposeChunk(cidx)
	c.fields[f].clearOnceSet(bit)
}
