package ga

import "unicode/utf16"

// stringHash computes the 32-bit string hash used to derive client and
// visitor ids. The exact arithmetic is a wire-compatibility contract: ids
// reported by earlier releases of this connector must keep hashing to the
// same values, so the multiply-xor loop runs back-to-front over UTF-16 code
// units with 32-bit wraparound, exactly like its predecessor.
func stringHash(s string) uint32 {
	h := uint32(5381)
	units := utf16.Encode([]rune(s))
	for i := len(units) - 1; i >= 0; i-- {
		h = (h * 33) ^ uint32(units[i])
	}
	return h
}
