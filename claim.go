package bitmap

// ClaimFunc is invoked once per candidate bit try_find_and_claim clears.
// claimed == true commits the clear. claimed == false with keepSet == true
// re-sets the bit (another consumer didn't actually want it, so the
// abandoned marker must persist); claimed == false with keepSet == false
// leaves it cleared, treating the slice as permanently freed.
type ClaimFunc func(sliceIdx uint) (claimed, keepSet bool)

// TryFindAndClaim is the abandoned-page reclamation primitive: it clears a
// set bit, offers it to claimFn, and either commits the clear, reverts it,
// or leaves it cleared depending on the callback's verdict.
func (bm *Bitmap) TryFindAndClaim(tseq uint, claimFn ClaimFunc) (idx uint, ok bool) {
	found := bm.find(tseq, func(chunkIdx uint) bool {
		chk := &bm.chunks[chunkIdx]
		for {
			within, success := chk.findAndClear1()
			if !success {
				bm.chunkmapTryClear(chunkIdx)
				return false
			}
			sliceIdx := chunkIdx*chunkBits + within
			claimed, keepSet := claimFn(sliceIdx)
			if claimed {
				idx = sliceIdx
				return true
			}
			if keepSet {
				if transitioned, _ := chk.xset(true, within); !transitioned {
					panic("bitmap: re-set during claim rollback observed no 0->1 transition")
				}
				bm.chunkmapSet(chunkIdx)
				// this bit is spoken for again; keep scanning the chunk
				// for another candidate rather than stopping here.
				continue
			}
			// permanently freed: leave cleared, keep scanning this chunk.
			bm.chunkmapTryClear(chunkIdx)
			continue
		}
	})
	return idx, found
}
