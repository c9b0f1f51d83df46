//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package restensor

import (
	"math"

	"github.com/markkurossi/cryptotensor/crt"
)

// CrtMod recovers x mod K from x's residues without ever materializing
// the represented big integer:
//
//	t_i = x_i * q_i mod m_i
//	v   = (Σ t_i * M/m_i) - α*M        for some α >= 0
//	α   = round(Σ t_i / m_i)           (float-assisted; exact given the modulus set's sizing)
//	v mod K = ((Σ t_i * b_i) - B*α) mod K
//
// and returns the result decomposed into residues of that small value.
func CrtMod(x *Tensor, p *crt.Params) *Tensor {
	n := size(x.Shape)
	k := len(p.M)

	t := make([][]int64, k)
	for i, mi := range p.M {
		ti := make([]int64, n)
		xi := x.Data[i]
		qi := p.Q[i]
		for j := 0; j < n; j++ {
			ti[j] = mod(xi[j]*qi, mi)
		}
		t[i] = ti
	}

	out := New(x.Shape, p.M)
	for j := 0; j < n; j++ {
		var floatSum float64
		for i := range p.M {
			floatSum += float64(t[i][j]) / float64(p.M[i])
		}
		alpha := int64(math.Round(floatSum))

		var v int64
		for i := range p.M {
			v += t[i][j] * p.Bc[i]
		}
		v -= p.BigB * alpha
		vModK := mod(v, p.K)

		for i, mi := range p.M {
			out.Data[i][j] = mod(vModK, mi)
		}
	}
	return out
}
