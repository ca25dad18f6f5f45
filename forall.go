package bitmap

import "golang.org/x/sync/errgroup"

// ForallSet walks every currently-set bit: for each set chunkmap bit, walk
// each field of that chunk, and for each non-zero field emit every set bit
// via repeated ctz+clearLeast on a local copy. visit returns true to keep
// going, false to stop early.
//
// This is a snapshot-ish scan: concurrent mutations during the walk may
// cause individual bits to be missed or double-reported across separate
// calls, but every bit reported corresponds to a real state at some point
// during the call. completed reports whether the walk ran to the end
// without visit returning false.
func (bm *Bitmap) ForallSet(visit func(idx uint) bool) (completed bool) {
	chunkCount := uint(bm.ChunkCount())
	validFields := (chunkCount + wordBits - 1) / wordBits

	for fidx := uint(0); fidx < validFields; fidx++ {
		cmapWord := bm.chunkmap.fields[fidx].load()
		base := fidx * wordBits
		for cmapWord != 0 {
			bit := uint(ctz(cmapWord))
			cmapWord = clearLeast(cmapWord)
			chunkIdx := base + bit
			if chunkIdx >= chunkCount {
				continue
			}
			if !bm.chunks[chunkIdx].forEachSet(chunkIdx*chunkBits, visit) {
				return false
			}
		}
	}
	return true
}

// forEachSet emits every set bit of c, offset by base, in field order.
func (c *chunk) forEachSet(base uint, visit func(idx uint) bool) (keepGoing bool) {
	for f := 0; f < fieldsPerChunk; f++ {
		v := c.fields[f].load()
		fieldBase := base + uint(f)*wordBits
		for v != 0 {
			bit := uint(ctz(v))
			v = clearLeast(v)
			if !visit(fieldBase + bit) {
				return false
			}
		}
	}
	return true
}

// ForallSetConcurrent takes a snapshot via ForallSet, then fans the given
// visitor out across up to workers goroutines using an errgroup, joining
// and returning the first error (if any). It still only ever walks the
// bitmap through the single ForallSet contract; this just lets a caller
// offload per-bit work concurrently instead of hand-rolling a worker pool.
func (bm *Bitmap) ForallSetConcurrent(workers int, visit func(idx uint) error) error {
	if workers <= 0 {
		workers = 1
	}
	var indices []uint
	bm.ForallSet(func(idx uint) bool {
		indices = append(indices, idx)
		return true
	})

	var g errgroup.Group
	g.SetLimit(workers)
	for _, idx := range indices {
		idx := idx
		g.Go(func() error { return visit(idx) })
	}
	return g.Wait()
}
