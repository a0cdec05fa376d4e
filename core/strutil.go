package core

// Itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Hex formats v as 0x-prefixed hex with at least digits digits
func Hex(v uint32, digits int) string {
	const hexdigits = "0123456789abcdef"
	if digits < 1 {
		digits = 1
	}
	var buf [10]byte
	pos := len(buf)
	for v > 0 || digits > 0 {
		pos--
		buf[pos] = hexdigits[v&0xF]
		v >>= 4
		digits--
		if pos == 2 {
			break
		}
	}
	pos--
	buf[pos] = 'x'
	pos--
	buf[pos] = '0'
	return string(buf[pos:])
}
