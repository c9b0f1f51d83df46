//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import "github.com/markkurossi/cryptotensor/restensor"

// addMod, subMod and mulMod are thin forwarders to restensor's
// componentwise kernels, named for readability at call sites that chain
// several of them together (mul's and square's combine steps, spec
// §4.8).
func addMod(x, y *restensor.Tensor, m []int64) (*restensor.Tensor, error) {
	return restensor.Add(x, y, m)
}

func subMod(x, y *restensor.Tensor, m []int64) (*restensor.Tensor, error) {
	return restensor.Sub(x, y, m)
}

func mulMod(x, y *restensor.Tensor, m []int64) (*restensor.Tensor, error) {
	return restensor.Mul(x, y, m)
}

func sumMod(m []int64, terms ...*restensor.Tensor) (*restensor.Tensor, error) {
	acc := terms[0]
	var err error
	for _, t := range terms[1:] {
		acc, err = restensor.Add(acc, t, m)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
