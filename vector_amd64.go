//go:build amd64

package bitmap

import "golang.org/x/sys/cpu"

// vectorAvailable reports whether this machine has the instructions a SIMD
// fast path for the fixed-size chunk finders (findAndClear8/findAndClearX)
// would want: POPCNT for the byte/field all-set trick and AVX2 for a wide
// compare. This package has no actual SIMD kernel yet — the scalar finders
// in findclear.go are the only implementation, on every platform, regardless
// of this flag — so vectorAvailable is read-only telemetry for callers who
// want to know whether an accelerated path *would* be selected, not a
// second code path.
var vectorAvailable = cpu.X86.HasPOPCNT && cpu.X86.HasAVX2
