//go:build wasm

package formtree

// wasm builds are single-goroutine in practice and goid is unavailable, so
// the affinity guard is a no-op there.
func currentGoroutineID() int64 {
	return 0
}
