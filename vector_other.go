//go:build !amd64

package bitmap

// vectorAvailable is false on platforms this package has no vector
// acceleration story for; see vector_amd64.go.
var vectorAvailable = false
