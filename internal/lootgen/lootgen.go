// Package lootgen implements the probability-accurate loot spawn counter
// used once per session per tick.
package lootgen

import "math"

// RandomSource returns a uniform draw in [0,1). Injected so tests can
// supply a fixed sequence instead of a real RNG.
type RandomSource func() float64

// Generator tracks unspent elapsed time against a base interval and
// probability, producing a spawn count for a given shortage of loot
// relative to the number of looters present.
type Generator struct {
	baseInterval float64 // seconds
	probability  float64
	accumulated  float64 // seconds of elapsed time not yet consumed by a spawn
	random       RandomSource
}

// New creates a generator with the given base interval (seconds),
// probability in [0,1], and random source. A nil random source falls back
// to always returning 0, which rounds any fractional expectation up.
func New(baseIntervalSeconds, probability float64, random RandomSource) *Generator {
	if random == nil {
		random = func() float64 { return 0 }
	}
	return &Generator{baseInterval: baseIntervalSeconds, probability: probability, random: random}
}

// Generate advances the accumulator by dtSeconds and returns the number of
// loot items to spawn given the current loot count and looter count.
//
// need = max(0, looterCount - existingLoot). The expected yield over the
// accumulated time is need*(1-(1-p)^(accumulated/T)); the integer count is
// obtained via stochastic rounding (floor plus a Bernoulli draw on the
// fractional remainder) so that the long-run average tracks the expected
// value instead of always truncating. The accumulator resets only once a
// call actually yields loot, so repeated zero-delta calls are not
// idempotent: unspent time keeps building until a spawn consumes it.
func (g *Generator) Generate(dtSeconds float64, existingLoot, looterCount int) int {
	g.accumulated += dtSeconds

	need := looterCount - existingLoot
	if need <= 0 {
		return 0
	}
	if g.baseInterval <= 0 {
		return 0
	}

	ratio := g.accumulated / g.baseInterval
	share := 1 - math.Pow(1-g.probability, ratio)
	value := float64(need) * share

	whole := math.Floor(value)
	frac := value - whole
	generated := int(whole)
	if g.random() < frac {
		generated++
	}
	if generated > 0 {
		g.accumulated = 0
	}
	return generated
}
