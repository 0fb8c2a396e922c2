package core

// Widen converts host float32 samples into dst and returns the number of
// converted elements (the shorter of both lengths). Zero-alloc.
func Widen(dst []float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float64(src[i])
	}
	return n
}

// Narrow converts float64 samples back into a host float32 buffer and
// returns the number of converted elements. Zero-alloc.
func Narrow(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i])
	}
	return n
}
