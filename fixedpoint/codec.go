//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package fixedpoint implements the rational <-> ring-element codec:
// encode(r, f) = floor(r * 2^f) mod M, and decode using the signed-range
// convention (a value v in [0, M) represents v if v <= M/2, else v - M,
// then divided by 2^f).
package fixedpoint

import (
	"math/big"

	"github.com/markkurossi/cryptotensor/crt"
)

// Encode converts a rational value into a ring element mod M at the
// precision carried by p (p.FractionalBits).
func Encode(r float64, p *crt.Params) *big.Int {
	scaled := new(big.Rat).Mul(
		new(big.Rat).SetFloat64(r),
		new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(p.FractionalBits))),
	)
	// floor()
	q := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	if scaled.Sign() < 0 && new(big.Int).Mul(q, scaled.Denom()).Cmp(scaled.Num()) != 0 {
		q.Sub(q, big.NewInt(1))
	}
	return q.Mod(q, p.Modulus)
}

// Decode recovers the rational value a ring element represents, using
// the signed-range convention: v if v <= M/2, else v - M.
func Decode(v *big.Int, p *crt.Params) float64 {
	signed := new(big.Int).Set(v)
	half := new(big.Int).Rsh(p.Modulus, 1)
	if signed.Cmp(half) > 0 {
		signed.Sub(signed, p.Modulus)
	}

	f := new(big.Float).SetInt(signed)
	denom := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(p.FractionalBits)))
	f.Quo(f, denom)

	out, _ := f.Float64()
	return out
}

// Constant is a Scale operand: either an integer (exact, no
// encoding/truncation needed) or a rational (encoded and truncated
// after the componentwise multiply).
type Constant struct {
	IsRational bool
	Int        int64
	Rational   float64
}

// Int makes an integer scale constant.
func Int(v int64) Constant { return Constant{Int: v} }

// Rational makes a rational scale constant.
func Rational(v float64) Constant { return Constant{IsRational: true, Rational: v} }

// Ring returns the constant's ring-element representative mod p.Modulus,
// encoding it first if it is rational.
func (c Constant) Ring(p *crt.Params) *big.Int {
	if c.IsRational {
		return Encode(c.Rational, p)
	}
	return new(big.Int).Mod(big.NewInt(c.Int), p.Modulus)
}
