// Package conv formats numbers into caller-owned byte slices without fmt or
// strconv, so diagnostics stay small on a microcontroller.
package conv

const hexDigits = "0123456789ABCDEF"

// AppendUint appends the decimal form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var b [20]byte
	i := len(b)
	for {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, b[i:]...)
}

// AppendInt appends the decimal form of n, with a leading '-' when negative.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		return AppendUint(append(dst, '-'), uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex32 appends n as eight upper-case hex digits, without 0x.
func AppendHex32(dst []byte, n uint32) []byte {
	for shift := 28; shift >= 0; shift -= 4 {
		dst = append(dst, hexDigits[(n>>uint(shift))&0xF])
	}
	return dst
}

// AppendPad appends s followed by spaces up to width columns. Longer strings
// are not cut.
func AppendPad(dst []byte, s string, width int) []byte {
	dst = append(dst, s...)
	for i := len(s); i < width; i++ {
		dst = append(dst, ' ')
	}
	return dst
}

// Itoa is AppendInt into a fresh string.
func Itoa(n int) string {
	var b [21]byte
	return string(AppendInt(b[:0], int64(n)))
}

// ParseUint parses a non-empty run of decimal digits. It reports false on any
// other input or on overflow.
func ParseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (1<<64-1-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}
