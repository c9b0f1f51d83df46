//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import "fmt"

// Mask hides a tensor behind a random additive mask so the servers can
// multiply without revealing their operands: CP samples a and shares it
// as (a0, a1); S0 computes α0 = x0 - a0; S1 computes α1 = x1 - a1; then
// each server reconstructs α locally from (α0, α1) so both hold the same
// value. Memoized under ('mask', x) keyed by x's identity — a second
// Mask(x) call with the same handle returns the same node rather than
// spending a fresh random mask.
//
// If x is already a MaskedPrivateTensor, Mask is the identity: masking
// an already-masked tensor returns it unchanged.
func (e *Engine) Mask(x Handle) (*MaskedPrivateTensor, error) {
	if cached, ok := e.memoLookup("mask", x.ID(), -1); ok {
		return cached.(*MaskedPrivateTensor), nil
	}

	switch v := x.(type) {
	case *PrivateTensor:
		m, err := e.maskPrivate(v)
		if err != nil {
			return nil, err
		}
		e.memoStore("mask", x.ID(), -1, m)
		return m, nil
	case *MaskedPrivateTensor:
		e.memoStore("mask", x.ID(), -1, v)
		return v, nil
	default:
		return nil, &TypeMismatch{Where: "mask", Got: fmt.Sprintf("%T", x)}
	}
}

func (e *Engine) maskPrivate(x *PrivateTensor) (*MaskedPrivateTensor, error) {
	a := e.Sample(x.shape)
	a0, a1, err := e.shareRaw(a)
	if err != nil {
		return nil, err
	}

	x0, x1 := x.Shares()
	alpha0, err := subMod(x0, a0, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	alpha1, err := subMod(x1, a1, e.Config.Params.M)
	if err != nil {
		return nil, err
	}
	// Both servers reconstruct α locally from (α0, α1); the two
	// reconstructions are equal as residue values, so a single tensor
	// stands in for both devices' copies.
	alpha, err := addMod(alpha0, alpha1, e.Config.Params.M)
	if err != nil {
		return nil, err
	}

	return &MaskedPrivateTensor{
		id:     e.nextNodeID(),
		shape:  append([]int(nil), x.shape...),
		a:      a,
		a0:     a0,
		a1:     a1,
		alpha0: alpha,
		alpha1: alpha,
	}, nil
}
