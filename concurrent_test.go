package bitmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestConcurrentClaimRelease runs N goroutines that repeatedly find-and-clear
// then set the bit back, for a fixed number of iterations each. The
// invariant under test: no bit is ever held (cleared) by two goroutines at
// the same time.
func TestConcurrentClaimRelease(t *testing.T) {
	const workers = 16
	const iterations = 2000

	bm, err := NewBitmap(512)
	require.NoError(t, err)
	bm.UnsafeSetN(0, 512)

	var mu sync.Mutex
	held := map[uint]int{}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		tseq := uint(w)
		g.Go(func() error {
			for i := 0; i < iterations; i++ {
				idx, ok := bm.TryFindAndClear(tseq)
				if !ok {
					continue
				}

				mu.Lock()
				held[idx]++
				n := held[idx]
				mu.Unlock()

				if n != 1 {
					return errDoubleHeld(idx)
				}

				mu.Lock()
				held[idx]--
				mu.Unlock()

				bm.Xset(true, idx)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}

type errDoubleHeld uint

func (e errDoubleHeld) Error() string {
	return "bit held by more than one goroutine at once"
}

// TestConcurrentSummarySoundness stresses set/clear across goroutines and
// then checks summary soundness once quiescent: every chunk with a set bit
// must have its chunkmap bit set too.
func TestConcurrentSummarySoundness(t *testing.T) {
	bm, err := NewBitmap(2048)
	require.NoError(t, err)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			for i := uint(0); i < 200; i++ {
				idx := (uint(w)*200 + i) % uint(bm.BitCount())
				bm.Xset(true, idx)
				if i%3 == 0 {
					bm.Xset(false, idx)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for cidx := 0; cidx < bm.ChunkCount(); cidx++ {
		if !bm.chunks[cidx].allClearRelaxed() {
			require.True(t, bm.chunkmap.isXset(true, uint(cidx)),
				"chunk %d has a set bit but chunkmap bit is clear", cidx)
		}
	}
}
