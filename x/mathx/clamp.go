package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return Max(lo, Min(v, hi))
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// WrapAdd returns (pos+n) mod size for pos < size and n <= size.
func WrapAdd[T constraints.Unsigned](pos, n, size T) T {
	pos += n
	if pos >= size {
		pos -= size
	}
	return pos
}

// WrapSub returns (pos-n) mod size for pos < size and n <= size.
func WrapSub[T constraints.Unsigned](pos, n, size T) T {
	if n > pos {
		return size - (n - pos)
	}
	return pos - n
}
