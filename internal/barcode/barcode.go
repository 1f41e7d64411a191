// Package barcode generates label codes for product instances. Codes are
// short, unambiguous and random, so printed labels can be typed in by
// hand when a scanner is not at the desk.
package barcode

import (
	"crypto/rand"
)

// Prefix marks generated codes so operator-supplied barcodes are easy to
// tell apart in the database.
const Prefix = "LK-"

// CodeLen is the number of random characters after the prefix.
const CodeLen = 8

// chars excludes 0/O, 1/I and 8/B, which misread on worn labels.
var chars = []byte("ACDEFGHJKLMNPQRSTUVWXYZ2345679")

const maxByteValue = 255

// New returns a fresh label code, e.g. "LK-7KQWX2RD". Collisions are
// possible and must be handled by the unique barcode constraint.
func New() string {
	return Prefix + randomCode(CodeLen)
}

// randomCode draws length characters uniformly from the charset,
// rejecting random bytes outside the largest multiple of the charset
// size to avoid modulo bias.
func randomCode(length int) string {
	clen := len(chars)
	maxRb := maxByteValue - (256 % clen)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("barcode: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			if int(rb) > maxRb {
				continue
			}

			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				return string(out)
			}
		}
	}
}
