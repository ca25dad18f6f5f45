package bitmap

import "testing"

func TestTryFindAndClaimCommitted(t *testing.T) {
	bm, err := NewBitmap(512)
	if err != nil {
		t.Fatal(err)
	}
	bm.XsetN(true, 42, 1)

	idx, ok := bm.TryFindAndClaim(0, func(sliceIdx uint) (claimed, keepSet bool) {
		return true, false
	})
	if !ok || idx != 42 {
		t.Fatalf("TryFindAndClaim = %d,%v want 42,true", idx, ok)
	}
	if bm.IsXsetN(true, 42, 1) {
		t.Error("claimed bit should stay cleared")
	}
}

func TestTryFindAndClaimKeepSet(t *testing.T) {
	bm, err := NewBitmap(512)
	if err != nil {
		t.Fatal(err)
	}
	bm.XsetN(true, 7, 1)

	calls := 0
	idx, ok := bm.TryFindAndClaim(0, func(sliceIdx uint) (claimed, keepSet bool) {
		calls++
		if calls == 1 {
			return false, true // refuse, but the abandoned marker persists
		}
		return true, false
	})
	if !ok || idx != 7 {
		t.Fatalf("TryFindAndClaim = %d,%v want 7,true", idx, ok)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (refused once, then reclaimed the re-set bit)", calls)
	}
}

func TestTryFindAndClaimPermanentlyFreed(t *testing.T) {
	bm, err := NewBitmap(512)
	if err != nil {
		t.Fatal(err)
	}
	bm.XsetN(true, 9, 1)

	idx, ok := bm.TryFindAndClaim(0, func(sliceIdx uint) (claimed, keepSet bool) {
		return false, false
	})
	if ok {
		t.Fatalf("TryFindAndClaim should find nothing to claim, got idx=%d", idx)
	}
	if bm.IsXsetN(true, 9, 1) {
		t.Error("bit 9 should remain cleared: treated as permanently freed")
	}
}

func TestTryFindAndClaimEmpty(t *testing.T) {
	bm, err := NewBitmap(512)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bm.TryFindAndClaim(0, func(uint) (bool, bool) { return true, false }); ok {
		t.Error("TryFindAndClaim on an empty bitmap should fail")
	}
}
