//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package restensor

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
)

// Sampler draws uniform residues in [0, m_i) from a ChaCha20 keystream
// via golang.org/x/crypto/chacha20.NewUnauthenticatedCipher. Every call
// to Sample advances the stream; nothing is ever replayed, so two Sample
// calls of identical shape never return the same tensor — a fresh mask
// or share every time, never a cached or memoized one.
type Sampler struct {
	stream *chacha20.Cipher
}

// NewSampler seeds a fresh keystream from the OS CSPRNG.
func NewSampler() (*Sampler, error) {
	var key [32]byte
	var nonce [chacha20.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("restensor: seeding sampler: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("restensor: seeding sampler: %w", err)
	}
	return NewSamplerFromSeed(key, nonce)
}

// NewSamplerFromSeed seeds a keystream deterministically, for
// reproducible tests (e.g. the sampler's range check against a known
// seed).
func NewSamplerFromSeed(key [32]byte, nonce [chacha20.NonceSize]byte) (*Sampler, error) {
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("restensor: initializing keystream: %w", err)
	}
	return &Sampler{stream: stream}, nil
}

// nextUint64 draws 8 keystream bytes and interprets them as a uint64.
func (s *Sampler) nextUint64() uint64 {
	var buf [8]byte
	s.stream.XORKeyStream(buf[:], buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// uniform draws a value uniform on [0, n) by rejection sampling, to
// avoid modulo bias.
func (s *Sampler) uniform(n int64) int64 {
	if n <= 0 {
		return 0
	}
	limit := (^uint64(0) / uint64(n)) * uint64(n)
	for {
		v := s.nextUint64()
		if v < limit {
			return int64(v % uint64(n))
		}
	}
}

// Sample produces a residue tensor whose component i is uniform on
// [0, m[i]).
func (s *Sampler) Sample(shape []int, m []int64) *Tensor {
	out := New(shape, m)
	for i, mi := range m {
		oi := out.Data[i]
		for j := range oi {
			oi[j] = s.uniform(mi)
		}
	}
	return out
}
