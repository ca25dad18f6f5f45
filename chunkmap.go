package bitmap

// chunkmap is the L2 summary: structurally a chunk, but bit i being set
// means "chunk i is believed to be non-empty" rather than indexing a bit of
// storage directly.
type chunkmap struct {
	chunk
}

// chunkmapSet marks chunk i as occupied and advances the chunkMaxAccessed
// hint. Program order plus the release semantics already built into
// bfield.set ensures this set is only ever observed after the chunk bit it
// summarizes became set: callers are required to have already performed the
// chunk-level set before calling this.
func (bm *Bitmap) chunkmapSet(i uint) {
	bm.chunkmap.xset(true, i)
	for {
		max := bm.chunkMaxAccessed.Load()
		if i <= uint(max) {
			return
		}
		if bm.chunkMaxAccessed.CompareAndSwap(max, uint64(i)) {
			return
		}
	}
}

// chunkmapTryClear implements the coherence protocol: check, clear, then
// re-check. The second check is what restores summary soundness (every
// chunk with a set bit must have its chunkmap bit set) against the race
// where another thread sets a bit in the window between this thread
// observing the chunk empty and clearing the chunkmap bit.
func (bm *Bitmap) chunkmapTryClear(i uint) bool {
	chk := &bm.chunks[i]
	if !chk.allClearRelaxed() {
		return false
	}
	bm.chunkmap.xset(false, i)
	if !chk.allClearRelaxed() {
		// another thread set a bit in chunk i during the window above;
		// restore the summary rather than leave it unsoundly cleared.
		bm.chunkmap.xset(true, i)
		return false
	}
	return true
}
