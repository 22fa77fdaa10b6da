package frame

import "strconv"

// Checksum sums the Unicode code points of s.
func Checksum(s string) int64 {
	var sum int64
	for _, r := range s {
		sum += int64(r)
	}
	return sum
}

// Verify reports whether token is exactly the decimal form of covered's
// checksum. Leading zeros, signs or whitespace in token never match.
func Verify(covered, token string) bool {
	return strconv.FormatInt(Checksum(covered), 10) == token
}
