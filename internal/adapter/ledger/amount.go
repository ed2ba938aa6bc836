package ledger

import (
	"fmt"
	"math/big"

	"github.com/stellar/go/xdr"
)

var (
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	twoTo64 = new(big.Int).Lsh(big.NewInt(1), 64)
)

// bigIntToI128 converts a big.Int into XDR 128-bit parts. Token amounts are
// i128 on the ledger and must never pass through int64 or float64.
func bigIntToI128(v *big.Int) (xdr.Int128Parts, error) {
	if v.Cmp(i128Min) < 0 || v.Cmp(i128Max) > 0 {
		return xdr.Int128Parts{}, fmt.Errorf("amount %s out of i128 range", v)
	}

	// Two's complement over 128 bits.
	t := new(big.Int).Set(v)
	if t.Sign() < 0 {
		t.Add(t, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	var hi, lo big.Int
	hi.DivMod(t, twoTo64, &lo)

	return xdr.Int128Parts{
		Hi: xdr.Int64(hi.Uint64()),
		Lo: xdr.Uint64(lo.Uint64()),
	}, nil
}

// i128ToBigInt converts XDR 128-bit parts back to a big.Int.
func i128ToBigInt(p xdr.Int128Parts) *big.Int {
	v := new(big.Int).SetInt64(int64(p.Hi))
	v.Mul(v, twoTo64)
	return v.Add(v, new(big.Int).SetUint64(uint64(p.Lo)))
}

// parseAmount parses a base-10 decimal string into a big.Int, rejecting
// anything outside i128.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Cmp(i128Min) < 0 || v.Cmp(i128Max) > 0 {
		return nil, fmt.Errorf("amount %s out of i128 range", s)
	}
	return v, nil
}
