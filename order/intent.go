// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/shopspring/decimal"
)

// Intent is the token-leg tuple the settlement layer signs over. Totals are
// full-precision integers, i.e. decimal values scaled by 10^precision.
type Intent struct {
	TokenBuy  uint32
	TokenSell uint32

	TotalBuy  decimal.Decimal
	TotalSell decimal.Decimal
}

// Hash returns the canonical digest of the intent. The encoding is fixed:
// token ids as big-endian uint32 followed by the length-prefixed decimal
// strings of the totals.
func (v *Intent) Hash() []byte {
	h := sha256.New()
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v.TokenBuy)
	h.Write(buf[:])
	binary.BigEndian.PutUint32(buf[:], v.TokenSell)
	h.Write(buf[:])
	for _, total := range []decimal.Decimal{v.TotalBuy, v.TotalSell} {
		s := total.String()
		binary.BigEndian.PutUint32(buf[:], uint32(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	return h.Sum(nil)
}
