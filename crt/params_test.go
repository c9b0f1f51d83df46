//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package crt

import (
	"math/big"
	"testing"
)

func TestDefaultParamsRoundTrip(t *testing.T) {
	p, err := DefaultParams()
	if err != nil {
		t.Fatalf("DefaultParams: %v", err)
	}

	vals := []int64{0, 1, 42, 123456789, -1}
	for _, v := range vals {
		x := new(big.Int).Mod(big.NewInt(v), p.Modulus)
		residues := Decompose(x, p.M)
		got := p.Recombine(residues)
		if got.Cmp(x) != 0 {
			t.Errorf("Recombine(Decompose(%d)) = %s, want %s", v, got, x)
		}
	}
}

func TestNewParamsRejectsNonCoprime(t *testing.T) {
	_, err := NewParams([]int64{4, 6}, 8, 8, 4, 16)
	if err == nil {
		t.Fatalf("expected error for non-coprime moduli")
	}
	if _, ok := err.(*ParameterInvariantViolation); !ok {
		t.Fatalf("expected *ParameterInvariantViolation, got %T: %v", err, err)
	}
}

func TestNewParamsRejectsInsufficientModulus(t *testing.T) {
	// A modulus far too small for the requested precision.
	_, err := NewParams([]int64{11, 13}, 32, 32, 20, 1024)
	if err == nil {
		t.Fatalf("expected error for insufficient log2(M)")
	}
}

func TestNewParams64Bit5Component(t *testing.T) {
	// The commented-out alternative set from spdz.py, kept as a
	// regression check that NewParams isn't hard-coded to k=10.
	m := []int64{89702869, 78489023, 69973811, 70736797, 79637461}
	_, err := NewParams(m, 16, 30, 20, 1024)
	if err != nil {
		t.Fatalf("NewParams with 5-component set: %v", err)
	}
}

func TestGcdKMInvariant(t *testing.T) {
	p, err := DefaultParams()
	if err != nil {
		t.Fatalf("DefaultParams: %v", err)
	}
	g := new(big.Int).GCD(nil, nil, big.NewInt(p.K), p.Modulus)
	if g.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("gcd(K,M) = %s, want 1", g)
	}
}
