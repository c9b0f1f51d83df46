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

// EncodeInput is the host-side helper that turns a flat rational tensor
// into a residue tensor ready for Share or DefineVariable.
func EncodeInput(values []float64, shape []int, p *crt.Params) *restensor.Tensor {
	t := restensor.New(shape, p.M)
	residues := make([]int64, len(p.M))
	for j, v := range values {
		ring := fixedpoint.Encode(v, p)
		copy(residues, crt.Decompose(ring, p.M))
		for i := range p.M {
			t.Data[i][j] = residues[i]
		}
	}
	return t
}

// DecodeOutput applies Recombine then Decode to every element of a
// revealed residue tensor.
func DecodeOutput(t *restensor.Tensor, p *crt.Params) []float64 {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	out := make([]float64, n)
	residues := make([]int64, len(p.M))
	for j := 0; j < n; j++ {
		for i := range p.M {
			residues[i] = t.Data[i][j]
		}
		out[j] = fixedpoint.Decode(p.Recombine(residues), p)
	}
	return out
}

// DefineInput is the input provider's entry point for a decomposed
// residue tensor, returned alongside the freshly shared PrivateTensor
// placed on S0/S1. The first return value is the plaintext residue
// tensor supplied, handed back unchanged since it is shared immediately
// rather than deferred to a later feed step.
func (e *Engine) DefineInput(value *restensor.Tensor) (*restensor.Tensor, *PrivateTensor, error) {
	shared, err := e.Share(value)
	if err != nil {
		return nil, nil, err
	}
	return value, shared, nil
}

// DefineVariable encodes and shares a plaintext initial value, with each
// server's share wrapped in a mutable cell so the result can later be
// the target of Assign.
func (e *Engine) DefineVariable(initial []float64, shape []int) (*PrivateTensor, error) {
	value := EncodeInput(initial, shape, e.Config.Params)
	r, diff, err := e.shareRaw(value)
	if err != nil {
		return nil, err
	}
	return &PrivateTensor{
		id:    e.nextNodeID(),
		shape: append([]int(nil), shape...),
		cell0: &cell{value: r},
		cell1: &cell{value: diff},
	}, nil
}

// Assign writes the result of a live computation into a persistent
// variable, without ever revealing it: it registers an action that
// copies v's current shares into x's cells, applied the next time
// RunCacheUpdates runs. v is read at update time rather than now, so a
// v that is itself still being computed (e.g. cached) resolves to its
// latest value. x must be mutable (the result of DefineVariable or
// Cache), or this returns AssignmentTargetNotMutable.
func (e *Engine) Assign(x, v *PrivateTensor) error {
	if !x.Mutable() {
		return &AssignmentTargetNotMutable{}
	}
	if !sameShape(x.shape, v.shape) {
		return &restensor.ShapeMismatch{A: x.shape, B: v.shape}
	}
	cell0, cell1 := x.cell0, x.cell1
	e.cacheUpdates = append(e.cacheUpdates, func() {
		s0, s1 := v.Shares()
		cell0.value = s0
		cell1.value = s1
	})
	return nil
}

// Reveal reconstructs x's shares without decoding. The caller applies
// DecodeOutput (Recombine + Decode) to interpret the result.
func (e *Engine) Reveal(x *PrivateTensor) (*restensor.Tensor, error) {
	s0, s1 := x.Shares()
	return restensor.Add(s0, s1, e.Config.Params.M)
}
