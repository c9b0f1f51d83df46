//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package crt implements the Chinese Remainder Theorem number system the
// engine runs on: decomposing big integers into small-modulus residues,
// recombining residues back into a big integer, and deriving the
// constants (λ, q, b, B, K⁻¹, M) every other package needs but never
// recomputes.
//
// The constants are derived once, at configuration time, on
// arbitrary-precision integers. Decompose and Recombine also run per
// element at the input/output boundary (encoding cleartext inputs,
// decoding revealed outputs), never on shares inside the protocol. The
// pattern is the usual one for derived constants: compute once, hand
// out read-only values.
package crt

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Params holds one fixed small-modulus set m = (m_1,...,m_k), the CRT
// modulus M = ∏ m_i, and every constant derived from (m, K) that the
// residue-tensor kernels and the distributed truncation need.
type Params struct {
	// M is the ordered, pairwise-coprime small modulus tuple.
	M []int64

	// Modulus is the big-integer CRT modulus ∏ M[i].
	Modulus *big.Int

	// Lambda[i] = (Modulus/M[i]) * ((Modulus/M[i])^-1 mod M[i]), used by
	// Recombine.
	Lambda []*big.Int

	// Q[i] = (Modulus/M[i])^-1 mod M[i], used by CrtMod.
	Q []int64

	// Bc[i] = (Modulus/M[i]) mod K, used by CrtMod.
	Bc []int64

	// BigB = Modulus mod K, used by CrtMod.
	BigB int64

	// IntegralBits, FractionalBits and GapBits are the fixed-point
	// precision parameters: integer bits, fractional bits, and the
	// extra headroom bits reserved so truncation never wraps M.
	IntegralBits   int
	FractionalBits int
	GapBits        int

	// K = 2^FractionalBits.
	K int64

	// KInv is the residue decomposition of K^-1 mod Modulus, used by
	// truncation.
	KInv []int64

	// MWrap is the residue decomposition of Modulus itself (trivially
	// all-zero, since M ≡ 0 mod every M[i]), used on the S1 side of
	// truncation to realize M - raw_truncate(M - x1) without ever
	// materializing M.
	MWrap []int64

	// BatchBound is the largest contraction length (matmul reduction,
	// or scale/mul batch size) the parameters were chosen to support.
	BatchBound int
}

// ParameterInvariantViolation reports that a requested (m, I, f, g,
// batchBound) tuple fails one of the modulus-set sizing invariants
// NewParams checks. It is fatal to engine construction.
type ParameterInvariantViolation struct {
	Reason string
}

func (e *ParameterInvariantViolation) Error() string {
	return fmt.Sprintf("crt: parameter invariant violated: %s", e.Reason)
}

// mantissaBits is the bit width of the float64 mantissa CrtMod's
// float-assisted rounding accumulates into (see restensor.CrtMod).
const mantissaBits = 53

// NewParams derives a Params from a small modulus tuple and the
// fixed-point precision parameters, checking that the modulus set is
// large enough to hold the represented range without overflow and that
// every per-element product still fits in a float64 mantissa for the
// CRT-mod reduction's rounding step to stay exact. batchBound is the
// largest contraction length (dot-product length, or elementwise batch
// size) the caller intends to run ops over.
func NewParams(m []int64, integralBits, fractionalBits, gapBits, batchBound int) (*Params, error) {
	if len(m) == 0 {
		return nil, &ParameterInvariantViolation{Reason: "modulus tuple m must be non-empty"}
	}
	if batchBound <= 0 {
		return nil, &ParameterInvariantViolation{Reason: "batchBound must be positive"}
	}
	if fractionalBits < 0 || integralBits < 0 || gapBits < 0 {
		return nil, &ParameterInvariantViolation{Reason: "I, f, g must be non-negative"}
	}

	for _, mi := range m {
		if mi <= 1 {
			return nil, &ParameterInvariantViolation{
				Reason: fmt.Sprintf("modulus %d must be greater than 1", mi),
			}
		}
	}
	if err := checkPairwiseCoprime(m); err != nil {
		return nil, err
	}

	log2BatchBound := math.Log2(float64(batchBound))
	for _, mi := range m {
		if 2*log2(mi)+log2BatchBound >= 63 {
			return nil, &ParameterInvariantViolation{
				Reason: fmt.Sprintf(
					"2*log2(%d)+log2(%d) must be < 63 (native word overflow in dot/matmul reduction)",
					mi, batchBound),
			}
		}
	}

	modulus := big.NewInt(1)
	for _, mi := range m {
		modulus.Mul(modulus, big.NewInt(mi))
	}

	log2Modulus := float64(modulus.BitLen())
	need := 2*float64(integralBits+fractionalBits) + log2BatchBound + float64(gapBits)
	if log2Modulus < need {
		return nil, &ParameterInvariantViolation{
			Reason: fmt.Sprintf(
				"log2(M)=%.1f must be >= 2*(I+f)+log2(batchBound)+g=%.1f", log2Modulus, need),
		}
	}

	maxM := int64(0)
	for _, mi := range m {
		if mi > maxM {
			maxM = mi
		}
	}
	if math.Log2(float64(batchBound)*float64(maxM)) >= mantissaBits {
		return nil, &ParameterInvariantViolation{
			Reason: "log2(batchBound*max(m_i)) must be < float64 mantissa width (53 bits) for crt_mod's rounding to be exact",
		}
	}

	lambda, err := computeLambdas(m, modulus)
	if err != nil {
		return nil, err
	}

	k := int64(1) << uint(fractionalBits)

	kBig := big.NewInt(k)
	if new(big.Int).GCD(nil, nil, kBig, modulus).Cmp(big.NewInt(1)) != 0 {
		return nil, &ParameterInvariantViolation{Reason: "gcd(K, M) must be 1 for truncation's K^-1 to exist"}
	}

	q := make([]int64, len(m))
	bc := make([]int64, len(m))
	for i, mi := range m {
		miBig := big.NewInt(mi)
		quot := new(big.Int).Div(modulus, miBig)
		qi := new(big.Int).ModInverse(new(big.Int).Mod(quot, miBig), miBig)
		if qi == nil {
			return nil, &ParameterInvariantViolation{
				Reason: fmt.Sprintf("M/%d has no inverse mod %d", mi, mi),
			}
		}
		q[i] = qi.Int64()
		bc[i] = new(big.Int).Mod(quot, kBig).Int64()
	}
	bigB := new(big.Int).Mod(modulus, kBig).Int64()

	kInvBig := new(big.Int).ModInverse(kBig, modulus)
	if kInvBig == nil {
		return nil, &ParameterInvariantViolation{Reason: "K has no inverse mod M"}
	}

	return &Params{
		M:              append([]int64(nil), m...),
		Modulus:        modulus,
		Lambda:         lambda,
		Q:              q,
		Bc:             bc,
		BigB:           bigB,
		IntegralBits:   integralBits,
		FractionalBits: fractionalBits,
		GapBits:        gapBits,
		K:              k,
		KInv:           Decompose(kInvBig, m),
		MWrap:          Decompose(modulus, m),
		BatchBound:     batchBound,
	}, nil
}

func log2(x int64) float64 {
	return math.Log2(float64(x))
}

func checkPairwiseCoprime(m []int64) error {
	for i := 0; i < len(m); i++ {
		for j := i + 1; j < len(m); j++ {
			if gcdInt64(m[i], m[j]) != 1 {
				return &ParameterInvariantViolation{
					Reason: fmt.Sprintf("m[%d]=%d and m[%d]=%d are not coprime", i, m[i], j, m[j]),
				}
			}
		}
	}
	return nil
}

func gcdInt64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	return a
}

func computeLambdas(m []int64, modulus *big.Int) ([]*big.Int, error) {
	lambda := make([]*big.Int, len(m))
	for i, mi := range m {
		miBig := big.NewInt(mi)
		quot := new(big.Int).Div(modulus, miBig)
		inv := new(big.Int).ModInverse(new(big.Int).Mod(quot, miBig), miBig)
		if inv == nil {
			return nil, errors.New("crt: modulus set is not pairwise coprime")
		}
		lambda[i] = new(big.Int).Mod(new(big.Int).Mul(quot, inv), modulus)
	}
	return lambda, nil
}

// Decompose returns the residues (x mod m_1, ..., x mod m_k).
func Decompose(x *big.Int, m []int64) []int64 {
	out := make([]int64, len(m))
	for i, mi := range m {
		miBig := big.NewInt(mi)
		out[i] = new(big.Int).Mod(x, miBig).Int64()
	}
	return out
}

// Recombine reconstructs the canonical representative of x in [0, M)
// from its residues, using the precomputed λ constants.
func (p *Params) Recombine(residues []int64) *big.Int {
	acc := new(big.Int)
	tmp := new(big.Int)
	for i, xi := range residues {
		tmp.Mul(big.NewInt(xi), p.Lambda[i])
		acc.Add(acc, tmp)
	}
	return acc.Mod(acc, p.Modulus)
}

// DefaultParams returns a 10-component, 32-bit-safe modulus set with 16
// integral bits, 16 fractional bits, a 20-bit truncation gap, and a
// contraction bound of 1024 — generous enough for typical matmul/dot
// reduction lengths without risking native-word overflow.
func DefaultParams() (*Params, error) {
	m := []int64{1201, 1433, 1217, 1237, 1321, 1103, 1129, 1367, 1093, 1039}
	return NewParams(m, 16, 16, 20, 1024)
}
