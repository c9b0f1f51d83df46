//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package restensor

import "github.com/markkurossi/cryptotensor/crt"

// RawTruncate computes (s - (s mod K)) * K_inv mod M componentwise —
// the exact-division-by-K step each side of a distributed truncation
// performs on its own share.
func RawTruncate(s *Tensor, p *crt.Params) *Tensor {
	reduced := CrtMod(s, p)
	diff, err := Sub(s, reduced, p.M)
	if err != nil {
		// s and CrtMod(s) always share s's shape.
		panic(err)
	}
	return Scale(diff, p.KInv, p.M)
}

// Truncate0 is S0's half of the distributed truncation: y0 = RawTruncate(x0).
func Truncate0(x0 *Tensor, p *crt.Params) *Tensor {
	return RawTruncate(x0, p)
}

// Truncate1 is S1's half: y1 = M - raw_truncate(M - x1) mod M, realized
// in residue space via the all-zero MWrap tensor (M ≡ 0 mod every m_i),
// so that "M - v" is just componentwise negation via Sub(MWrap, v).
func Truncate1(x1 *Tensor, p *crt.Params) *Tensor {
	mWrap := Broadcast(x1.Shape, p.MWrap, p.M)
	negated, err := Sub(mWrap, x1, p.M)
	if err != nil {
		panic(err)
	}
	raw := RawTruncate(negated, p)
	out, err := Sub(mWrap, raw, p.M)
	if err != nil {
		panic(err)
	}
	return out
}
