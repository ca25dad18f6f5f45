package bitmap

// bfieldCycleIterate emits the set bits of v in a staggered cycle: [tseq mod
// cycle, cycle), then [0, tseq mod cycle), then [cycle, wordBits). visit
// stops the walk by returning true. This staggering, parameterized only by
// the externally supplied tseq, is the sole contention-avoidance mechanism
// in the whole package: no locks, no per-thread state beyond the integer a
// caller passes in.
func bfieldCycleIterate(v uint64, cycle, tseq uint, visit func(bit uint) bool) bool {
	if cycle == 0 || cycle > wordBits {
		cycle = wordBits
	}
	start := tseq % cycle
	mask := maskRange(start, cycle)

	rem := v & mask
	for rem != 0 {
		if visit(uint(ctz(rem))) {
			return true
		}
		rem = clearLeast(rem)
	}

	rem = v &^ mask
	for rem != 0 {
		if visit(uint(ctz(rem))) {
			return true
		}
		rem = clearLeast(rem)
	}
	return false
}

// find walks chunk indices in the thread-staggered order and invokes visit
// for each chunk the chunkmap believes is occupied, stopping as soon as
// visit returns true. Only the chunkmap's valid low fields (covering the
// actual chunkCount) are scanned; chunkMaxAccessed narrows the stagger
// cycle within the field straddling that high-water mark so threads don't
// get staggered into a region of the map that's never been touched.
func (bm *Bitmap) find(tseq uint, visit func(chunkIdx uint) bool) bool {
	maxAccessed := uint(bm.chunkMaxAccessed.Load())
	chunkCount := uint(bm.ChunkCount())
	validFields := (chunkCount + wordBits - 1) / wordBits

	for fidx := uint(0); fidx < validFields; fidx++ {
		v := bm.chunkmap.fields[fidx].load()
		if v == 0 {
			continue
		}
		base := fidx * wordBits
		cycle := uint(wordBits)
		switch {
		case base > maxAccessed:
			cycle = 1
		case maxAccessed-base+1 < wordBits:
			cycle = maxAccessed - base + 1
		}
		stop := bfieldCycleIterate(v, cycle, tseq, func(bit uint) bool {
			chunkIdx := base + bit
			if chunkIdx >= chunkCount {
				return false
			}
			return visit(chunkIdx)
		})
		if stop {
			return true
		}
	}
	return false
}

// findKind tags which chunk-level finder to dispatch to inside the find
// visitor: a closed tagged variant chosen by a switch, instead of passing the
// chunk finder in as a second function value.
type findKind struct {
	tag findTag
	n   uint
}

type findTag int

const (
	findOne findTag = iota
	findEight
	findFullField
	findSmallN
	findLargeN
)

func (bm *Bitmap) tryFindAndClearKind(tseq uint, fk findKind) (idx uint, ok bool) {
	found := bm.find(tseq, func(chunkIdx uint) bool {
		chk := &bm.chunks[chunkIdx]
		var within uint
		var success bool
		switch fk.tag {
		case findOne:
			within, success = chk.findAndClear1()
		case findEight:
			within, success = chk.findAndClear8()
		case findFullField:
			within, success = chk.findAndClearX()
		case findSmallN:
			within, success = chk.findAndClearNX(fk.n)
		case findLargeN:
			within, success = chk.findAndClearN_(fk.n)
		}
		if success {
			idx = chunkIdx*chunkBits + within
			return true
		}
		// opportunistically downgrade the summary now that we know this
		// particular finder found nothing, rather than waiting for a
		// later pass to discover the chunk is empty.
		bm.chunkmapTryClear(chunkIdx)
		return false
	})
	return idx, found
}

// TryFindAndClear finds and clears a single set bit.
func (bm *Bitmap) TryFindAndClear(tseq uint) (idx uint, ok bool) {
	return bm.tryFindAndClearKind(tseq, findKind{tag: findOne})
}

// TryFindAndClear8 finds and clears an aligned, fully-set byte (8 bits).
func (bm *Bitmap) TryFindAndClear8(tseq uint) (idx uint, ok bool) {
	return bm.tryFindAndClearKind(tseq, findKind{tag: findEight})
}

// TryFindAndClearX finds and clears one entirely-set field (wordBits bits).
func (bm *Bitmap) TryFindAndClearX(tseq uint) (idx uint, ok bool) {
	return bm.tryFindAndClearKind(tseq, findKind{tag: findFullField})
}

// TryFindAndClearN finds and clears a run of n set bits, dispatching to the
// within-field (NX) or cross-field (N_) finder by size.
func (bm *Bitmap) TryFindAndClearN(tseq, n uint) (idx uint, ok bool) {
	switch {
	case n == 0 || n > chunkBits:
		panic("bitmap: n out of range")
	case n < wordBits:
		return bm.tryFindAndClearKind(tseq, findKind{tag: findSmallN, n: n})
	default:
		return bm.tryFindAndClearKind(tseq, findKind{tag: findLargeN, n: n})
	}
}
