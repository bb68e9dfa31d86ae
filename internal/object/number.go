package object

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/nukata/goarith"
)

func NewInt(n int64) *Number {
	return &Number{Value: goarith.AsNumber(big.NewInt(n))}
}

func NewFloat(f float64) *Number {
	return &Number{Value: goarith.AsNumber(f)}
}

// ParseNumber reads an integer of any size (with 0x/0o/0b prefixes) or a
// float. It reports false when text is not numeric.
func ParseNumber(text string) (*Number, bool) {
	var z big.Int
	if _, ok := z.SetString(text, 0); ok {
		return &Number{Value: goarith.AsNumber(&z)}, true
	}
	if !strings.ContainsAny(text, "0123456789") {
		return nil, false
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return &Number{Value: goarith.AsNumber(f)}, true
	}
	return nil, false
}

// Int converts an exact number that fits into int.
func (n *Number) Int() (int, bool) {
	i, err := strconv.Atoi(n.Value.String())
	if err != nil {
		return 0, false
	}
	return i, true
}

func (n *Number) Equal(other *Number) bool {
	return n.Value.Cmp(other.Value) == 0
}
