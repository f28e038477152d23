// Package montecarlo replays multi-year trajectories under per-year random
// perturbation and reduces the terminal values to summary statistics.
//
// # Determinism
//
// Every draw comes from the *rand.Rand passed by the caller. Two calls with
// generators seeded identically and identical inputs produce identical
// results; NewRand seeds a fresh generator from crypto/rand when the caller
// does not care about reproducibility.
package montecarlo

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/Artem7898/ai-decision-simulator/internal/decision"
)

// Step advances a trajectory state by one year.
type Step[S any] func(state S, rng *rand.Rand) S

// Sample runs samples independent trials of horizon years each, starting every
// trial from a fresh copy of initial, and returns the terminal states in trial
// order.
func Sample[S any](rng *rand.Rand, initial S, horizon, samples int, step Step[S]) ([]S, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", decision.ErrInvalidRunConfig, horizon)
	}
	if samples < 1 {
		return nil, fmt.Errorf("%w: sample count must be at least 1, got %d", decision.ErrInvalidRunConfig, samples)
	}
	if step == nil {
		return nil, fmt.Errorf("step function cannot be nil")
	}
	if rng == nil {
		var err error
		if rng, err = NewRand(); err != nil {
			return nil, err
		}
	}

	terminal := make([]S, samples)
	for i := 0; i < samples; i++ {
		state := initial
		for year := 0; year < horizon; year++ {
			state = step(state, rng)
		}
		terminal[i] = state
	}
	return terminal, nil
}

// Normal draws one variate from N(mean, stddev).
func Normal(rng *rand.Rand, mean, stddev float64) float64 {
	return rng.NormFloat64()*stddev + mean
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a generator seeded from fresh entropy.
func NewRand() (*rand.Rand, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeededRand(seed), nil
}

// NewSeededRand returns a generator for reproducible runs.
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
