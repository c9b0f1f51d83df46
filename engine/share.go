//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import "github.com/markkurossi/cryptotensor/restensor"

// Sample draws a fresh uniform residue tensor of the given shape. This
// is never memoized, and two calls of identical shape never return the
// same tensor — a sampling node has no meaningful "identity" to dedupe
// on.
func (e *Engine) Sample(shape []int) *restensor.Tensor {
	return e.sampler.Sample(shape, e.Config.Params.M)
}

// shareRaw draws r <- Sample(s.Shape) and returns (r, s-r mod M), the
// shared building block behind Share and Mask's CP-side mask sharing.
func (e *Engine) shareRaw(s *restensor.Tensor) (*restensor.Tensor, *restensor.Tensor, error) {
	r := e.Sample(s.Shape)
	diff, err := restensor.Sub(s, r, e.Config.Params.M)
	if err != nil {
		return nil, nil, err
	}
	return r, diff, nil
}

// Share splits a cleartext residue tensor into a fresh PrivateTensor.
// Each call allocates a new node id; sharing the same tensor twice
// produces two distinct, unrelated PrivateTensors.
func (e *Engine) Share(s *restensor.Tensor) (*PrivateTensor, error) {
	r, diff, err := e.shareRaw(s)
	if err != nil {
		return nil, err
	}
	return &PrivateTensor{
		id:     e.nextNodeID(),
		shape:  append([]int(nil), s.Shape...),
		share0: r,
		share1: diff,
	}, nil
}

// Reconstruct combines a PrivateTensor's two shares into the cleartext
// residue tensor, without decoding.
func (e *Engine) Reconstruct(x *PrivateTensor) (*restensor.Tensor, error) {
	s0, s1 := x.Shares()
	return restensor.Add(s0, s1, e.Config.Params.M)
}
