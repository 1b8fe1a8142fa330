package p4

import (
	"math/big"
	"strings"

	"github.com/camuslang/camus/pkg/query"
)

// encodeConst renders a constant as an unsigned decimal at the field's
// width. Strings are space-padded to width/8 bytes and read big-endian;
// IPv6 is assembled into a single 128-bit integer, high limb leftmost.
func encodeConst(c query.Const, widthBits int) string {
	return c.BigInt(widthBits).String()
}

// encodeOffset renders a numeric constant shifted by off, for the
// inclusive bounds of strict comparisons.
func encodeOffset(c query.Const, widthBits int, off int64) string {
	v := c.BigInt(widthBits)
	v.Add(v, big.NewInt(off))
	return v.String()
}

// maxDecimal is the largest value a width-bit field can hold, in decimal.
func maxDecimal(widthBits int) string {
	v := new(big.Int).Lsh(big.NewInt(1), uint(widthBits))
	v.Sub(v, big.NewInt(1))
	return v.String()
}

// maxHex is the same bound in the 0xff… form the command syntax uses for
// the open end of a greater-than range.
func maxHex(widthBits int) string {
	return "0x" + strings.Repeat("ff", (widthBits+7)/8)
}
