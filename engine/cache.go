//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import "fmt"

// Cache allocates persistent mutable cells backing x: initialized to
// random residues, with an update action registered that copies x's
// current residues into the cells. The returned handle reads live
// through those cells and is itself a valid PrivateTensor or
// MaskedPrivateTensor, usable in further ops. Nothing is materialized
// until RunCacheUpdates runs. Memoized under ('cache', x) keyed by x's
// identity — a second Cache(x) call with the same handle returns the
// same node rather than growing the update list with a duplicate cell.
func (e *Engine) Cache(x Handle) (Handle, error) {
	if cached, ok := e.memoLookup("cache", x.ID(), -1); ok {
		return cached, nil
	}

	var out Handle
	var err error
	switch v := x.(type) {
	case *PrivateTensor:
		out, err = e.cachePrivate(v)
	case *MaskedPrivateTensor:
		out, err = e.cacheMasked(v)
	default:
		return nil, &TypeMismatch{Where: "cache", Got: fmt.Sprintf("%T", x)}
	}
	if err != nil {
		return nil, err
	}
	e.memoStore("cache", x.ID(), -1, out)
	return out, nil
}

func (e *Engine) cachePrivate(x *PrivateTensor) (*PrivateTensor, error) {
	cell0 := &cell{value: e.Sample(x.shape)}
	cell1 := &cell{value: e.Sample(x.shape)}
	out := &PrivateTensor{id: e.nextNodeID(), shape: append([]int(nil), x.shape...), cell0: cell0, cell1: cell1}

	e.cacheUpdates = append(e.cacheUpdates, func() {
		s0, s1 := x.Shares()
		cell0.value = s0
		cell1.value = s1
	})
	return out, nil
}

func (e *Engine) cacheMasked(x *MaskedPrivateTensor) (*MaskedPrivateTensor, error) {
	cellA := &cell{value: e.Sample(x.shape)}
	cellA0 := &cell{value: e.Sample(x.shape)}
	cellA1 := &cell{value: e.Sample(x.shape)}
	cellAlpha0 := &cell{value: e.Sample(x.shape)}
	cellAlpha1 := &cell{value: e.Sample(x.shape)}
	out := &MaskedPrivateTensor{
		id: e.nextNodeID(), shape: append([]int(nil), x.shape...),
		cellA: cellA, cellA0: cellA0, cellA1: cellA1,
		cellAlpha0: cellAlpha0, cellAlpha1: cellAlpha1,
	}

	e.cacheUpdates = append(e.cacheUpdates, func() {
		a, a0, a1, alpha0, alpha1 := x.Fields()
		cellA.value = a
		cellA0.value = a0
		cellA1.value = a1
		cellAlpha0.value = alpha0
		cellAlpha1.value = alpha1
	})
	return out, nil
}

// RunCacheUpdates runs every registered cache-update action in
// registration order, materializing each cached node's most recently
// computed residues into its cells. The update list only ever grows
// during graph construction; nothing is removed from it.
func (e *Engine) RunCacheUpdates() {
	for _, update := range e.cacheUpdates {
		update()
	}
}
