package cellGenerator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrNegativeCount = errors.New("record count must not be negative")

//Observer gets notified about every generated record and every clamped responder value.
//Implementations used with GenerateParallel must be safe for concurrent use
type Observer interface {
	ObserveRecord(r CellRecord)
	ObserveClamp(channel string)
}

type noopObserver struct{}

func (noopObserver) ObserveRecord(CellRecord) {}
func (noopObserver) ObserveClamp(string)      {}

//NewSeededRand returns a deterministic source. Same seed, same records
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

//NewUnseededRand returns a source seeded from the wall clock, successive runs differ
func NewUnseededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

//Generator draws CellRecords. It is not safe for concurrent use, the underlying rand.Rand is not
type Generator struct {
	config   Config
	channels []Channel
	rng      *rand.Rand
	observer Observer
}

//NewGenerator validates config. A nil rng is replaced by NewUnseededRand, a nil observer ignores all events
func NewGenerator(config Config, rng *rand.Rand, observer Observer) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config : %w", err)
	}
	if rng == nil {
		rng = NewUnseededRand()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Generator{
		config:   config,
		channels: config.Channels.Ordered(),
		rng:      rng,
		observer: observer,
	}, nil
}

//Sample draws a single record. The draw order is donor, dose, then one normal deviate per channel in column order
func (g *Generator) Sample() CellRecord {
	donor := g.config.Donors[g.rng.Intn(len(g.config.Donors))]
	dose := g.config.Doses[g.rng.Intn(len(g.config.Doses))]

	var values [NumExpressionChannels]float64
	for i, ch := range g.channels {
		noise := g.rng.NormFloat64() * ch.NoiseStdDev
		switch ch.Kind {
		case Responder:
			v := donor.Baseline + dose*ch.DoseCoefficient + noise
			//expression can't be negative
			if v < 0 {
				g.observer.ObserveClamp(ch.Name)
				v = 0
			}
			values[i] = v
		default:
			//housekeeping values may dip below zero, left as is
			values[i] = ch.Constant + noise
		}
	}

	r := newRecord(donor.Label, dose, values)
	g.observer.ObserveRecord(r)
	return r
}

//Generate draws n records in order. n == 0 yields an empty slice
func (g *Generator) Generate(n int) ([]CellRecord, error) {
	if n < 0 {
		return nil, fmt.Errorf("requested %v records : %w", n, ErrNegativeCount)
	}
	records := make([]CellRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.Sample())
	}
	return records, nil
}

//fill overwrites every element of dst with a freshly sampled record
func (g *Generator) fill(dst []CellRecord) {
	for i := range dst {
		dst[i] = g.Sample()
	}
}

//Generate is a convenience wrapper around NewGenerator and Generator.Generate without observer
func Generate(config Config, rng *rand.Rand, n int) ([]CellRecord, error) {
	g, err := NewGenerator(config, rng, nil)
	if err != nil {
		return nil, err
	}
	return g.Generate(n)
}

//ExpectedValue returns the analytic mean of channel for donor and dose, ignoring the clamp at zero
func ExpectedValue(ch Channel, donor Donor, dose float64) float64 {
	if ch.Kind == Responder {
		return donor.Baseline + dose*ch.DoseCoefficient
	}
	return ch.Constant
}

//ClampedExpectedValue returns the mean of a generated value including the clamp at zero for responders,
//E[max(0,X)] = mu*Phi(mu/sd) + sd*phi(mu/sd)
func ClampedExpectedValue(ch Channel, donor Donor, dose float64) float64 {
	mean := ExpectedValue(ch, donor, dose)
	if ch.Kind != Responder {
		return mean
	}
	if ch.NoiseStdDev == 0 {
		return math.Max(0, mean)
	}
	z := mean / ch.NoiseStdDev
	return mean*distuv.UnitNormal.CDF(z) + ch.NoiseStdDev*distuv.UnitNormal.Prob(z)
}
