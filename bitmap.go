// Package bitmap implements a concurrent, hierarchical bitmap intended as
// the free-space / abandoned-page index of a page-granular allocator. Many
// goroutines may concurrently set, clear, find-and-clear, and iterate bits
// representing fixed-size slices of an arena without any lock: every
// mutation goes through atomic read-modify-write on individual machine
// words (bfield), and a two-level summary (chunkmap over chunks) keeps
// searches proportional to occupied regions rather than to capacity.
//
// The allocator proper, CPU intrinsics, any SIMD acceleration, statistics,
// logging, and page lifecycle management are all out of scope: this
// package exposes only integer bit indices and leaves their meaning to the
// caller.
package bitmap

import "sync/atomic"

// Bitmap is the top-level structure: a chunkmap summary plus a dense array
// of chunks. It is created zeroed, never resized, and safely shared by many
// goroutines for the lifetime of the owning arena.
type Bitmap struct {
	chunkCount       atomic.Uint64
	chunkMaxAccessed atomic.Uint64
	chunkmap         chunkmap
	chunks           []chunk
}

// BitmapSize computes the aligned bit count and chunk count a bitmap of at
// least bitCount bits needs. Go doesn't need the caller to hand it raw
// storage the way a flexible trailing array does, but the computation (and
// its capacity check) is still the contract callers may want ahead of
// NewBitmap.
func BitmapSize(bitCount int) (chunkCount int, alignedBitCount int, err error) {
	if bitCount <= 0 {
		return 0, 0, ErrInvalidBitCount
	}
	alignedBitCount = alignUp(bitCount, chunkBits)
	chunkCount = alignedBitCount / chunkBits
	if chunkCount > chunkBits {
		// a single chunkmap can only summarize chunkBits chunks, one bit
		// per chunk; reject requests that would need more than that.
		return 0, 0, ErrCapacityExceeded
	}
	return chunkCount, alignedBitCount, nil
}

func alignUp(n, to int) int {
	return (n + to - 1) / to * to
}

// NewBitmap allocates and zero-initializes a bitmap covering at least
// bitCount bits (aligned up to chunkBits). It returns ErrCapacityExceeded
// if that would need more chunks than one chunkmap can summarize.
func NewBitmap(bitCount int) (*Bitmap, error) {
	chunkCount, _, err := BitmapSize(bitCount)
	if err != nil {
		return nil, err
	}
	bm := &Bitmap{chunks: make([]chunk, chunkCount)}
	bm.chunkCount.Store(uint64(chunkCount))
	return bm, nil
}

// ChunkCount returns the number of chunks backing this bitmap.
func (bm *Bitmap) ChunkCount() int { return int(bm.chunkCount.Load()) }

// BitCount returns the total addressable bit range, chunkCount * chunkBits.
func (bm *Bitmap) BitCount() int { return bm.ChunkCount() * chunkBits }

func (bm *Bitmap) decompose(idx uint) (chunkIdx, within uint) {
	return idx / chunkBits, idx % chunkBits
}

func (bm *Bitmap) checkIdx(idx uint) {
	if idx >= uint(bm.BitCount()) {
		panic("bitmap: index out of range")
	}
}

// Xset atomically sets (set==true) or clears (set==false) a single bit,
// propagating the chunkmap summary afterwards. Returns whether the bit
// transitioned.
func (bm *Bitmap) Xset(set bool, idx uint) (transitioned bool) {
	bm.checkIdx(idx)
	chunkIdx, within := bm.decompose(idx)
	var maybeAllClear bool
	transitioned, maybeAllClear = bm.chunks[chunkIdx].xset(set, within)
	if set {
		bm.chunkmapSet(chunkIdx)
	} else if maybeAllClear {
		bm.chunkmapTryClear(chunkIdx)
	}
	return transitioned
}

// XsetN atomically-per-field sets or clears a run of n bits, all within one
// chunk: (idx % chunkBits) + n must not exceed chunkBits. Not atomic across
// fields; see TryXsetN for the all-or-nothing variant. Returns whether
// every targeted bit transitioned and the popcount of bits already in the
// target state.
func (bm *Bitmap) XsetN(set bool, idx, n uint) (allTransitioned bool, alreadyXset int) {
	bm.checkSingleChunkRange(idx, n)
	chunkIdx, within := bm.decompose(idx)
	allTransitioned, alreadyXset = bm.chunks[chunkIdx].xsetN(set, within, n)
	if set {
		bm.chunkmapSet(chunkIdx)
	} else {
		bm.chunkmapTryClear(chunkIdx)
	}
	return allTransitioned, alreadyXset
}

// TryXsetN is the atomic, all-or-nothing variant of XsetN: on failure, no
// bit in [idx, idx+n) was changed by this call.
func (bm *Bitmap) TryXsetN(set bool, idx, n uint) bool {
	bm.checkSingleChunkRange(idx, n)
	chunkIdx, within := bm.decompose(idx)
	ok := bm.chunks[chunkIdx].tryXsetN(set, within, n)
	if !ok {
		return false
	}
	if set {
		bm.chunkmapSet(chunkIdx)
	} else {
		bm.chunkmapTryClear(chunkIdx)
	}
	return true
}

// IsXsetN reports whether every bit in [idx, idx+n) is in the target state.
func (bm *Bitmap) IsXsetN(set bool, idx, n uint) bool {
	bm.checkSingleChunkRange(idx, n)
	chunkIdx, within := bm.decompose(idx)
	return bm.chunks[chunkIdx].isXsetN(set, within, n)
}

func (bm *Bitmap) checkSingleChunkRange(idx, n uint) {
	bm.checkIdx(idx)
	if n == 0 {
		panic("bitmap: n must be > 0")
	}
	_, within := bm.decompose(idx)
	if within+n > chunkBits {
		panic("bitmap: run crosses a chunk boundary")
	}
}

// UnsafeSetN fills an arbitrarily long run of bits, possibly crossing
// chunks. Not atomic and not thread-safe: for single-threaded construction
// of an arena only.
func (bm *Bitmap) UnsafeSetN(idx, n uint) {
	if n == 0 {
		return
	}
	if idx+n > uint(bm.BitCount()) {
		panic("bitmap: index out of range")
	}
	remaining := n
	cur := idx
	for remaining > 0 {
		chunkIdx, within := bm.decompose(cur)
		room := chunkBits - within
		take := remaining
		if take > room {
			take = room
		}
		bm.chunks[chunkIdx].xsetN(true, within, take)
		bm.chunkmapSet(chunkIdx)
		cur += take
		remaining -= take
	}
}

// ClearOnceSet busy-waits until idx is observed set, then clears it. See
// bfield.clearOnceSet for why this exists: a concurrent free racing a page
// that's still being published.
func (bm *Bitmap) ClearOnceSet(idx uint) {
	bm.checkIdx(idx)
	chunkIdx, within := bm.decompose(idx)
	bm.chunks[chunkIdx].clearOnceSet(within)
	bm.chunkmapTryClear(chunkIdx)
}

// Bsr finds the globally most-significant set bit, scanning the chunkmap
// high to low, then the matching chunk.
func (bm *Bitmap) Bsr() (idx uint, ok bool) {
	validChunks := bm.ChunkCount()
	for cidx := validChunks - 1; cidx >= 0; cidx-- {
		if !bm.chunkmap.isXset(true, uint(cidx)) {
			continue
		}
		if within, found := bm.chunks[cidx].bsr(); found {
			return uint(cidx)*chunkBits + within, true
		}
	}
	return 0, false
}
