//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package engine

import (
	"fmt"

	"github.com/markkurossi/cryptotensor/crt"
	"github.com/markkurossi/cryptotensor/party"
	"github.com/markkurossi/cryptotensor/restensor"
)

// Config is the engine's configuration: the CRT/fixed-point parameters
// and the role-to-device address mapping.
type Config struct {
	Params    *crt.Params
	Addresses party.Addresses
}

// ConfigOption customizes a Config built by NewConfig.
type ConfigOption func(*Config)

// WithAddresses sets the role-to-device address mapping.
func WithAddresses(a party.Addresses) ConfigOption {
	return func(c *Config) { c.Addresses = a }
}

// NewConfig validates (m, I, f, g) against the modulus-set sizing
// invariants (via crt.NewParams) and applies any ConfigOptions.
func NewConfig(m []int64, integralBits, fractionalBits, gapBits, batchBound int, opts ...ConfigOption) (*Config, error) {
	params, err := crt.NewParams(m, integralBits, fractionalBits, gapBits, batchBound)
	if err != nil {
		return nil, err
	}
	c := &Config{Params: params}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultConfig wraps crt.DefaultParams with no address binding (for
// standalone/test use, where there is no host runtime to place nodes on).
func DefaultConfig() (*Config, error) {
	params, err := crt.DefaultParams()
	if err != nil {
		return nil, err
	}
	return &Config{Params: params}, nil
}

// TypeMismatch reports an operand of the wrong kind for a builder call —
// e.g. Cache or Mask receives neither a PrivateTensor nor a
// MaskedPrivateTensor, or New receives a config with nil Params.
type TypeMismatch struct {
	Where string
	Got   string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("engine: type mismatch in %s: %s", e.Where, e.Got)
}

// AssignmentTargetNotMutable reports that Assign was applied to a
// PrivateTensor that is not the result of Cache or DefineVariable.
type AssignmentTargetNotMutable struct{}

func (e *AssignmentTargetNotMutable) Error() string {
	return "engine: assign target is not a cached (mutable) tensor"
}

// newSampler builds the sampler for a new Engine, seeded from the OS
// CSPRNG via restensor.NewSampler.
func newSampler() (*restensor.Sampler, error) {
	return restensor.NewSampler()
}
