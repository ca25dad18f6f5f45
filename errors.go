package bitmap

import "errors"

// ErrCapacityExceeded is returned by NewBitmap when the requested bit count
// would need more chunks than fit in a single chunkmap summary: one
// chunkmap can only summarize chunkBits chunks, since each chunk needs
// exactly one summary bit. Callers must partition into multiple bitmaps.
var ErrCapacityExceeded = errors.New("bitmap: requested bit count exceeds one chunkmap's chunk capacity")

// ErrInvalidBitCount is returned for a non-positive bit count.
var ErrInvalidBitCount = errors.New("bitmap: bit_count must be > 0")
