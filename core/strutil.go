package core

// itoa converts an integer to a string without the fmt package, which is too
// large for the firmware image.
func itoa(n int) string {
	if n < 0 {
		// -n overflows for the minimum value; widen first.
		return "-" + utoa64(uint64(-int64(n)))
	}
	return utoa64(uint64(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	return utoa64(uint64(n))
}

func utoa64(n uint64) string {
	var buf [20]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(buf[pos:])
}

// Itoa is the exported form used by target and protocol code.
func Itoa(n int) string {
	return itoa(n)
}
