//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package engine is the single-threaded graph builder for the
// CRT-residue additive-secret-sharing protocol: the sharing primitives,
// masking and Beaver-style triples, the arithmetic operations,
// structural memoization and the cache, and the I/O boundary between
// the input provider and output receiver.
//
// Every exported method builds and returns node handles; none of them
// block or spawn work — the result is a description of the protocol
// (a graph of operations to run) rather than the protocol actually
// running, the same way a circuit builder separates construction from
// evaluation.
package engine

import "github.com/markkurossi/cryptotensor/restensor"

// memoKey is the structural memoization key used for most ops:
// (op_name, operand_identities...). b is -1 for unary ops.
type memoKey struct {
	op   string
	a, b int
}

// scaleKey memoizes scale() separately, since its second operand is a
// constant rather than a node identity.
type scaleKey struct {
	x          int
	isRational bool
	intVal     int64
	ratVal     float64
}

// Engine is the builder context: the node memo and the cache-update
// list are both held here, rather than in package-level globals, so
// independent graphs never share mutable state.
type Engine struct {
	Config *Config

	sampler *restensor.Sampler
	nextID  int

	memo      map[memoKey]Handle
	scaleMemo map[scaleKey]*PrivateTensor

	cacheUpdates []func()

	// tripleSites counts CP triple constructions (not memo hits) — a
	// repeated Mul/Dot/Square on the same operands should build exactly
	// one triple no matter how many times it is called.
	tripleSites int
}

// New builds an Engine bound to cfg, seeding its sampler from the OS
// CSPRNG.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Params == nil {
		return nil, &TypeMismatch{Where: "engine.New", Got: "config with nil Params"}
	}
	s, err := newSampler()
	if err != nil {
		return nil, err
	}
	return &Engine{
		Config:    cfg,
		sampler:   s,
		memo:      make(map[memoKey]Handle),
		scaleMemo: make(map[scaleKey]*PrivateTensor),
	}, nil
}

func (e *Engine) nextNodeID() int {
	e.nextID++
	return e.nextID
}

func (e *Engine) memoLookup(op string, a, b int) (Handle, bool) {
	h, ok := e.memo[memoKey{op: op, a: a, b: b}]
	return h, ok
}

func (e *Engine) memoStore(op string, a, b int, h Handle) {
	e.memo[memoKey{op: op, a: a, b: b}] = h
}

// TripleSites returns the number of CP triples actually constructed so
// far (memo hits do not increment it) — useful for confirming that
// building mul(X,Y) twice costs only one triple.
func (e *Engine) TripleSites() int {
	return e.tripleSites
}
