package parser

// Sample keeps every stride-th item, stride = max(1, len/max), across the
// whole input. Order is preserved and the result is deterministic. The
// result may exceed max by less than a factor of two when len is not a
// multiple of max. A max of zero or less keeps everything.
func Sample[T any](items []T, max int) []T {
	if max <= 0 || len(items) <= max {
		return items
	}
	stride := len(items) / max
	if stride < 1 {
		stride = 1
	}
	out := make([]T, 0, (len(items)+stride-1)/stride)
	for i := 0; i < len(items); i += stride {
		out = append(out, items[i])
	}
	return out
}
