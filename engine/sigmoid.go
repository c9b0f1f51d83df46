//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import (
	"github.com/markkurossi/cryptotensor/crt"
	"github.com/markkurossi/cryptotensor/fixedpoint"
	"github.com/markkurossi/cryptotensor/restensor"
)

// sigmoidW0 ... sigmoidW9 are the degree-9 odd-polynomial coefficients
// approximating the logistic sigmoid on roughly |x| <= 4.
const (
	sigmoidW0 = 0.5
	sigmoidW1 = 0.2159198015
	sigmoidW3 = -0.0082176259
	sigmoidW5 = 0.0001825597
	sigmoidW7 = -1.8848e-6
	sigmoidW9 = 7.2e-9
)

// Sigmoid approximates the logistic function with the degree-9 odd
// polynomial w0 + Σ w_d·x^d, d ∈ {1,3,5,7,9}. x^2 is built via Square
// (sharing x's mask); x^3, x^5, x^7, x^9 each reuse x^2 in one further
// Mul. x^1 needs no masked multiply at all — it is Scale(x, w1) directly,
// since x is already a PrivateTensor and rebuilding it through the Mul
// pattern would be redundant. w0 is injected into S0's share only, after
// encoding, so it is added exactly once on reconstruction.
func (e *Engine) Sigmoid(x *PrivateTensor) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("sigmoid", x.ID(), -1); ok {
		return cached.(*PrivateTensor), nil
	}

	x2, err := e.Square(x)
	if err != nil {
		return nil, err
	}
	x3, err := e.Mul(x2, x)
	if err != nil {
		return nil, err
	}
	x5, err := e.Mul(x3, x2)
	if err != nil {
		return nil, err
	}
	x7, err := e.Mul(x5, x2)
	if err != nil {
		return nil, err
	}
	x9, err := e.Mul(x7, x2)
	if err != nil {
		return nil, err
	}

	t1, err := e.Scale(x, fixedpoint.Rational(sigmoidW1))
	if err != nil {
		return nil, err
	}
	t3, err := e.Scale(x3, fixedpoint.Rational(sigmoidW3))
	if err != nil {
		return nil, err
	}
	t5, err := e.Scale(x5, fixedpoint.Rational(sigmoidW5))
	if err != nil {
		return nil, err
	}
	t7, err := e.Scale(x7, fixedpoint.Rational(sigmoidW7))
	if err != nil {
		return nil, err
	}
	t9, err := e.Scale(x9, fixedpoint.Rational(sigmoidW9))
	if err != nil {
		return nil, err
	}

	sum, err := e.Add(t1, t3)
	if err != nil {
		return nil, err
	}
	sum, err = e.Add(sum, t5)
	if err != nil {
		return nil, err
	}
	sum, err = e.Add(sum, t7)
	if err != nil {
		return nil, err
	}
	sum, err = e.Add(sum, t9)
	if err != nil {
		return nil, err
	}

	out, err := e.injectConstantS0(sum, sigmoidW0)
	if err != nil {
		return nil, err
	}
	e.memoStore("sigmoid", x.ID(), -1, out)
	return out, nil
}

// injectConstantS0 encodes a plaintext constant and adds it to S0's
// share only, leaving S1's share untouched, so the constant is added
// exactly once when the two shares are later reconstructed.
func (e *Engine) injectConstantS0(x *PrivateTensor, value float64) (*PrivateTensor, error) {
	ring := fixedpoint.Encode(value, e.Config.Params)
	c := crt.Decompose(ring, e.Config.Params.M)
	cTensor := restensor.Broadcast(x.shape, c, e.Config.Params.M)

	s0, s1 := x.Shares()
	newS0, err := addMod(s0, cTensor, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	return &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), x.shape...), share0: newS0, share1: s1}, nil
}
