//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import (
	"math"
	"testing"

	"github.com/markkurossi/cryptotensor/crt"
	"github.com/markkurossi/cryptotensor/fixedpoint"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func shareValues(t *testing.T, e *Engine, values []float64, shape []int) *PrivateTensor {
	t.Helper()
	enc := EncodeInput(values, shape, e.Config.Params)
	pt, err := e.Share(enc)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	return pt
}

func revealDecode(t *testing.T, e *Engine, x *PrivateTensor) []float64 {
	t.Helper()
	r, err := e.Reveal(x)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	return DecodeOutput(r, e.Config.Params)
}

func closeEnough(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("element %d: got %v, want %v (tol %v)", i, got[i], want[i], tol)
		}
	}
}

// Dot product between a row vector and a column vector.
func TestDotProduct(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1.5, -2.25}, []int{1, 2})
	y := shareValues(t, e, []float64{2.0, 4.0}, []int{2, 1})

	z, err := e.Dot(x, y)
	if err != nil {
		t.Fatalf("Dot: %v", err)
	}
	got := revealDecode(t, e, z)
	closeEnough(t, got, []float64{-6.0}, 3e-4)
}

// Elementwise square.
func TestSquare(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{0.5, 1.0, -1.5}, []int{3})

	z, err := e.Square(x)
	if err != nil {
		t.Fatalf("Square: %v", err)
	}
	got := revealDecode(t, e, z)
	closeEnough(t, got, []float64{0.25, 1.0, 2.25}, 5e-4)
}

// Sigmoid approximation against its known closed-form values.
func TestSigmoidApproximation(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{0.0, 1.0, -1.0}, []int{3})

	z, err := e.Sigmoid(x)
	if err != nil {
		t.Fatalf("Sigmoid: %v", err)
	}
	got := revealDecode(t, e, z)
	closeEnough(t, got, []float64{0.5, 0.7310585786, 0.2689414214}, 1e-3)
}

// Add is exact: no truncation, so no precision loss.
func TestAddExact(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1.0, 2.0}, []int{2})
	y := shareValues(t, e, []float64{3.0, -1.0}, []int{2})

	z, err := e.Add(x, y)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := revealDecode(t, e, z)
	closeEnough(t, got, []float64{4.0, 1.0}, 1e-9)
}

// A repeated Mul on the same operands builds only one CP triple.
func TestMulMemoizesTriple(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1.25, -0.5}, []int{2})
	y := shareValues(t, e, []float64{2.0, 3.0}, []int{2})

	if _, err := e.Mul(x, y); err != nil {
		t.Fatalf("Mul 1: %v", err)
	}
	sitesAfterFirst := e.TripleSites()
	if _, err := e.Mul(x, y); err != nil {
		t.Fatalf("Mul 2: %v", err)
	}
	if got := e.TripleSites(); got != sitesAfterFirst {
		t.Errorf("TripleSites after repeated Mul = %d, want %d (memo should return the same node)", got, sitesAfterFirst)
	}
}

// Share/reveal round trip recovers the original value.
func TestShareRevealRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{3.25, -7.125, 0.0}, []int{3})
	got := revealDecode(t, e, x)
	closeEnough(t, got, []float64{3.25, -7.125, 0.0}, 1.0/float64(e.Config.Params.K))
}

// Transpose commutes with reveal: transposing shares then revealing
// gives the same result as revealing then transposing the cleartext.
func TestTransposeCommutesWithReveal(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1, 2, 3, 4, 5, 6}, []int{2, 3})
	xt, err := e.Transpose(x)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	got := revealDecode(t, e, xt)
	want := []float64{1, 4, 2, 5, 3, 6}
	closeEnough(t, got, want, 1e-9)
}

// Caching the same handle twice returns the identical node rather than
// allocating a second set of cells and growing the update list twice.
func TestCacheIdempotent(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1, 2}, []int{2})

	c1, err := e.Cache(x)
	if err != nil {
		t.Fatalf("Cache 1: %v", err)
	}
	c2, err := e.Cache(x)
	if err != nil {
		t.Fatalf("Cache 2: %v", err)
	}
	if c1 != c2 {
		t.Errorf("Cache(x) returned different handles on repeated calls")
	}
	if got := len(e.cacheUpdates); got != 1 {
		t.Errorf("cacheUpdates length after repeated Cache = %d, want 1", got)
	}
}

// Masking the same handle twice returns the identical node and mask.
func TestMaskIdempotent(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1, 2}, []int{2})

	m1, err := e.Mask(x)
	if err != nil {
		t.Fatalf("Mask 1: %v", err)
	}
	m2, err := e.Mask(x)
	if err != nil {
		t.Fatalf("Mask 2: %v", err)
	}
	if m1 != m2 {
		t.Errorf("Mask(x) returned different handles on repeated calls")
	}
	_, _, _, alpha0, alpha1 := m1.Fields()
	for i := range alpha0.Data {
		for j := range alpha0.Data[i] {
			if alpha0.Data[i][j] != alpha1.Data[i][j] {
				t.Errorf("alpha0 != alpha1 at component %d index %d", i, j)
			}
		}
	}
}

// Add is associative up to the ring (no truncation, so exact).
func TestAddAssociative(t *testing.T) {
	e := newTestEngine(t)
	a := shareValues(t, e, []float64{1, 2}, []int{2})
	b := shareValues(t, e, []float64{3, 4}, []int{2})
	c := shareValues(t, e, []float64{5, 6}, []int{2})

	ab, err := e.Add(a, b)
	if err != nil {
		t.Fatalf("Add(a,b): %v", err)
	}
	abc1, err := e.Add(ab, c)
	if err != nil {
		t.Fatalf("Add(ab,c): %v", err)
	}
	bc, err := e.Add(b, c)
	if err != nil {
		t.Fatalf("Add(b,c): %v", err)
	}
	abc2, err := e.Add(a, bc)
	if err != nil {
		t.Fatalf("Add(a,bc): %v", err)
	}

	got1 := revealDecode(t, e, abc1)
	got2 := revealDecode(t, e, abc2)
	closeEnough(t, got1, got2, 1e-9)
}

// Scaling by 2^f and truncating recovers the original value: truncation
// is the fixed point of a rescale that exactly doubles the precision.
func TestTruncationFixedPoint(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{0.75, -1.25}, []int{2})

	scaled, err := e.Scale(x, fixedpoint.Int(e.Config.Params.K))
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	s0, s1 := scaled.Shares()
	truncated := e.truncatePrivate(s0, s1, scaled.Shape())
	got := revealDecode(t, e, truncated)
	closeEnough(t, got, []float64{0.75, -1.25}, 2.0/float64(e.Config.Params.K))
}

// A shape mismatch on Mul surfaces as an error, and assigning onto a
// non-mutable tensor surfaces as AssignmentTargetNotMutable.
func TestErrorKinds(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1, 2}, []int{2})
	y := shareValues(t, e, []float64{1, 2, 3}, []int{3})

	if _, err := e.Mul(x, y); err == nil {
		t.Error("Mul with mismatched shapes: want error, got nil")
	}

	v := shareValues(t, e, []float64{9, 9}, []int{2})
	if err := e.Assign(x, v); err == nil {
		t.Error("Assign on non-cached tensor: want AssignmentTargetNotMutable, got nil")
	} else if _, ok := err.(*AssignmentTargetNotMutable); !ok {
		t.Errorf("Assign error type = %T, want *AssignmentTargetNotMutable", err)
	}
}

// DefineVariable + Assign + RunCacheUpdates round trip: assigning a
// freshly shared tensor into a variable takes effect only once
// RunCacheUpdates runs.
func TestVariableAssignRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	v, err := e.DefineVariable([]float64{1.0, 2.0}, []int{2})
	if err != nil {
		t.Fatalf("DefineVariable: %v", err)
	}
	got := revealDecode(t, e, v)
	closeEnough(t, got, []float64{1.0, 2.0}, 1e-6)

	newValue := shareValues(t, e, []float64{5.0, -5.0}, []int{2})
	if err := e.Assign(v, newValue); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	// Before RunCacheUpdates, the cell still holds the old value.
	got = revealDecode(t, e, v)
	closeEnough(t, got, []float64{1.0, 2.0}, 1e-6)

	e.RunCacheUpdates()
	got = revealDecode(t, e, v)
	closeEnough(t, got, []float64{5.0, -5.0}, 1e-6)
}

// Cache consistency for an ordinary computed tensor: the cached copy
// tracks the source node's current value once updates run.
func TestCacheConsistency(t *testing.T) {
	e := newTestEngine(t)
	x := shareValues(t, e, []float64{1, 2}, []int{2})
	y := shareValues(t, e, []float64{3, 4}, []int{2})
	sum, err := e.Add(x, y)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	cached, err := e.Cache(sum)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	cachedPT, ok := cached.(*PrivateTensor)
	if !ok {
		t.Fatalf("Cache(PrivateTensor) returned %T", cached)
	}

	e.RunCacheUpdates()
	got := revealDecode(t, e, cachedPT)
	want := revealDecode(t, e, sum)
	closeEnough(t, got, want, 1e-9)
}

// A single share reveals nothing about the secret: its distribution is
// statistically indistinguishable from uniform, checked here with a
// chi-squared goodness-of-fit test over a small modulus.
func TestShareStatisticalHiding(t *testing.T) {
	m := []int64{11, 13}
	params, err := crt.NewParams(m, 0, 0, 0, 1)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	e, err := New(&Config{Params: params})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const trials = 2000
	counts := make([]int64, m[0])
	cleartext := EncodeInput([]float64{0.5}, []int{1}, params)
	for i := 0; i < trials; i++ {
		pt, err := e.Share(cleartext)
		if err != nil {
			t.Fatalf("Share: %v", err)
		}
		s0, _ := pt.Shares()
		counts[s0.Data[0][0]]++
	}

	expected := float64(trials) / float64(m[0])
	var chiSq float64
	for _, c := range counts {
		d := float64(c) - expected
		chiSq += d * d / expected
	}
	// Degrees of freedom = m[0]-1 = 10; chi-squared critical value at
	// p=0.01 is about 23.2. The bound checked here, 40, lies well beyond
	// that (p below 0.0001), so a uniform share0 almost never exceeds it.
	if chiSq > 40 {
		t.Errorf("chi-squared statistic %v too high for a uniform share0 (m=%d, trials=%d)", chiSq, m[0], trials)
	}
}
