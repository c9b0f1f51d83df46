//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import (
	"fmt"

	"github.com/markkurossi/cryptotensor/crt"
	"github.com/markkurossi/cryptotensor/fixedpoint"
	"github.com/markkurossi/cryptotensor/restensor"
)

// Add adds two shared tensors componentwise on each server, with no CP
// involvement and no truncation (addition needs no rescaling). Memoized
// under ('add', x, y).
func (e *Engine) Add(x, y *PrivateTensor) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("add", x.ID(), y.ID()); ok {
		return cached.(*PrivateTensor), nil
	}
	x0, x1 := x.Shares()
	y0, y1 := y.Shares()
	s0, err := addMod(x0, y0, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	s1, err := addMod(x1, y1, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	out := &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), x.shape...), share0: s0, share1: s1}
	e.memoStore("add", x.ID(), y.ID(), out)
	return out, nil
}

// Sub subtracts two shared tensors componentwise — the mirror image of
// Add.
func (e *Engine) Sub(x, y *PrivateTensor) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("sub", x.ID(), y.ID()); ok {
		return cached.(*PrivateTensor), nil
	}
	x0, x1 := x.Shares()
	y0, y1 := y.Shares()
	s0, err := subMod(x0, y0, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	s1, err := subMod(x1, y1, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	out := &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), x.shape...), share0: s0, share1: s1}
	e.memoStore("sub", x.ID(), y.ID(), out)
	return out, nil
}

// Scale multiplies a shared tensor by a plaintext constant k: if k is
// rational, it is encoded, decomposed, multiplied into each share, and
// the result is truncated; if k is integer, the multiply runs without
// encoding or truncating. Memoized separately from node-keyed ops, since
// k is a constant rather than an operand identity.
func (e *Engine) Scale(x *PrivateTensor, k fixedpoint.Constant) (*PrivateTensor, error) {
	key := scaleKey{x: x.ID(), isRational: k.IsRational, intVal: k.Int, ratVal: k.Rational}
	if cached, ok := e.scaleMemo[key]; ok {
		return cached, nil
	}

	c := crt.Decompose(k.Ring(e.Config.Params), e.Config.Params.M)
	x0, x1 := x.Shares()
	s0 := restensor.Scale(x0, c, e.Config.Params.M)
	s1 := restensor.Scale(x1, c, e.Config.Params.M)

	var out *PrivateTensor
	if k.IsRational {
		out = e.truncatePrivate(s0, s1, x.shape)
	} else {
		out = &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), x.shape...), share0: s0, share1: s1}
	}
	e.scaleMemo[key] = out
	return out, nil
}

// truncatePrivate builds a fresh, truncated PrivateTensor from a pair of
// shares by running the distributed truncation protocol. Every
// multiplicative op (scale-by-rational, Mul, Dot, Square) routes its
// result through this before storing or caching it, since each such op
// doubles the fixed-point scale and truncation is what brings it back
// down.
func (e *Engine) truncatePrivate(s0, s1 *restensor.Tensor, shape []int) *PrivateTensor {
	y0 := restensor.Truncate0(s0, e.Config.Params)
	y1 := restensor.Truncate1(s1, e.Config.Params)
	return &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), shape...), share0: y0, share1: y1}
}

// Transpose transposes every residue of both shares. If x already has a
// memoized mask, the transpose of that mask is derived by transposing
// all five of its residue tensors and memoized against the transposed
// node, saving a fresh CP triple the next time the transposed tensor is
// multiplied.
func (e *Engine) Transpose(x *PrivateTensor) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("transpose", x.ID(), -1); ok {
		return cached.(*PrivateTensor), nil
	}
	if len(x.shape) != 2 {
		return nil, fmt.Errorf("engine: transpose requires a 2D tensor, got shape %v", x.shape)
	}

	s0, s1 := x.Shares()
	t0, err := restensor.Transpose(s0)
	if err != nil {
		return nil, err
	}
	t1, err := restensor.Transpose(s1)
	if err != nil {
		return nil, err
	}
	out := &PrivateTensor{id: e.nextNodeID(), shape: []int{x.shape[1], x.shape[0]}, share0: t0, share1: t1}
	e.memoStore("transpose", x.ID(), -1, out)

	if maskedAny, ok := e.memoLookup("mask", x.ID(), -1); ok {
		masked := maskedAny.(*MaskedPrivateTensor)
		a, a0, a1, alpha0, alpha1 := masked.Fields()
		ta, err := restensor.Transpose(a)
		if err != nil {
			return nil, err
		}
		ta0, err := restensor.Transpose(a0)
		if err != nil {
			return nil, err
		}
		ta1, err := restensor.Transpose(a1)
		if err != nil {
			return nil, err
		}
		talpha0, err := restensor.Transpose(alpha0)
		if err != nil {
			return nil, err
		}
		talpha1, err := restensor.Transpose(alpha1)
		if err != nil {
			return nil, err
		}
		tm := &MaskedPrivateTensor{
			id: e.nextNodeID(), shape: out.shape,
			a: ta, a0: ta0, a1: ta1, alpha0: talpha0, alpha1: talpha1,
		}
		e.memoStore("mask", out.ID(), -1, tm)
	}
	return out, nil
}

// Mul computes the elementwise (Hadamard) product of two shared
// tensors: masks both operands (reusing an existing mask via Mask's
// memoization), has CP combine the masks into a triple, has each server
// combine locally, then truncates. Memoized under ('mul', x, y) keyed by
// the original operand identities.
func (e *Engine) Mul(x, y Handle) (*PrivateTensor, error) {
	if !sameShape(x.Shape(), y.Shape()) {
		return nil, &restensor.ShapeMismatch{A: x.Shape(), B: y.Shape()}
	}
	if cached, ok := e.memoLookup("mul", x.ID(), y.ID()); ok {
		return cached.(*PrivateTensor), nil
	}

	mx, err := e.Mask(x)
	if err != nil {
		return nil, err
	}
	my, err := e.Mask(y)
	if err != nil {
		return nil, err
	}
	a, a0, a1, alpha0, _ := mx.Fields()
	b, b0, b1, beta0, _ := my.Fields()
	m := e.Config.Params.M

	ab, err := mulMod(a, b, m)
	if err != nil {
		return nil, err
	}
	ab0, ab1, err := e.shareRaw(ab)
	if err != nil {
		return nil, err
	}
	e.tripleSites++

	aBeta0, err := mulMod(a0, beta0, m)
	if err != nil {
		return nil, err
	}
	alphaB0, err := mulMod(alpha0, b0, m)
	if err != nil {
		return nil, err
	}
	alphaBeta, err := mulMod(alpha0, beta0, m)
	if err != nil {
		return nil, err
	}
	z0, err := sumMod(m, ab0, aBeta0, alphaB0, alphaBeta)
	if err != nil {
		return nil, err
	}

	aBeta1, err := mulMod(a1, beta0, m)
	if err != nil {
		return nil, err
	}
	alphaB1, err := mulMod(alpha0, b1, m)
	if err != nil {
		return nil, err
	}
	z1, err := sumMod(m, ab1, aBeta1, alphaB1)
	if err != nil {
		return nil, err
	}

	out := e.truncatePrivate(z0, z1, x.Shape())
	e.memoStore("mul", x.ID(), y.ID(), out)
	return out, nil
}

// Dot is the matmul analogue of Mul: every product computed via
// restensor.Dot instead of the elementwise Mul, with the same
// mask/triple/combine/truncate structure.
func (e *Engine) Dot(x, y Handle) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("dot", x.ID(), y.ID()); ok {
		return cached.(*PrivateTensor), nil
	}

	mx, err := e.Mask(x)
	if err != nil {
		return nil, err
	}
	my, err := e.Mask(y)
	if err != nil {
		return nil, err
	}
	a, a0, a1, alpha0, _ := mx.Fields()
	b, b0, b1, beta0, _ := my.Fields()
	m := e.Config.Params.M

	ab, err := restensor.Dot(a, b, m)
	if err != nil {
		return nil, err
	}
	ab0, ab1, err := e.shareRaw(ab)
	if err != nil {
		return nil, err
	}
	e.tripleSites++

	aBeta0, err := restensor.Dot(a0, beta0, m)
	if err != nil {
		return nil, err
	}
	alphaB0, err := restensor.Dot(alpha0, b0, m)
	if err != nil {
		return nil, err
	}
	alphaBeta, err := restensor.Dot(alpha0, beta0, m)
	if err != nil {
		return nil, err
	}
	z0, err := sumMod(m, ab0, aBeta0, alphaB0, alphaBeta)
	if err != nil {
		return nil, err
	}

	aBeta1, err := restensor.Dot(a1, beta0, m)
	if err != nil {
		return nil, err
	}
	alphaB1, err := restensor.Dot(alpha0, b1, m)
	if err != nil {
		return nil, err
	}
	z1, err := sumMod(m, ab1, aBeta1, alphaB1)
	if err != nil {
		return nil, err
	}

	shape := []int{x.Shape()[0], y.Shape()[1]}
	out := e.truncatePrivate(z0, z1, shape)
	e.memoStore("dot", x.ID(), y.ID(), out)
	return out, nil
}

// Square is a dedicated specialization of Mul(x, x) that masks x once
// and builds its own triple (CP computes aa = a*a directly rather than
// routing through Mul). Since Mask is memoized, Mul(x, x) would also
// build exactly one triple against the same mask; Square is memoized
// separately, under ('square', x).
//
// The S0/S1 combine steps compute the two equal terms a0*α + α*a0
// (respectively a1*α + α*a1) rather than the algebraically simpler
// scale(a0*α, 2); both forms are correct, and this keeps the two-term
// form deliberately, as an observed-but-unapplied optimization rather
// than a bug.
func (e *Engine) Square(x Handle) (*PrivateTensor, error) {
	if cached, ok := e.memoLookup("square", x.ID(), -1); ok {
		return cached.(*PrivateTensor), nil
	}

	mx, err := e.Mask(x)
	if err != nil {
		return nil, err
	}
	a, a0, a1, alpha0, _ := mx.Fields()
	m := e.Config.Params.M

	aa, err := mulMod(a, a, m)
	if err != nil {
		return nil, err
	}
	aa0, aa1, err := e.shareRaw(aa)
	if err != nil {
		return nil, err
	}
	e.tripleSites++

	t1, err := mulMod(a0, alpha0, m)
	if err != nil {
		return nil, err
	}
	t2, err := mulMod(alpha0, a0, m)
	if err != nil {
		return nil, err
	}
	t3, err := mulMod(alpha0, alpha0, m)
	if err != nil {
		return nil, err
	}
	z0, err := sumMod(m, aa0, t1, t2, t3)
	if err != nil {
		return nil, err
	}

	u1, err := mulMod(a1, alpha0, m)
	if err != nil {
		return nil, err
	}
	u2, err := mulMod(alpha0, a1, m)
	if err != nil {
		return nil, err
	}
	z1, err := sumMod(m, aa1, u1, u2)
	if err != nil {
		return nil, err
	}

	out := e.truncatePrivate(z0, z1, x.Shape())
	e.memoStore("square", x.ID(), -1, out)
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
