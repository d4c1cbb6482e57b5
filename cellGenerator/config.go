//Package cellGenerator simulates single cell gene expression measurements for a set of donors
//treated with different cytokine doses
package cellGenerator

import (
	"errors"
	"fmt"
	"math"
)

//ChannelKind distinguishes dose responsive channels from stable controls
type ChannelKind int

const (
	//Responder channels start at the donor baseline, grow linearly with the dose and are clamped at zero
	Responder ChannelKind = iota
	//Housekeeping channels are a fixed constant plus noise. They are not clamped
	Housekeeping
)

func (k ChannelKind) String() string {
	switch k {
	case Responder:
		return "responder"
	case Housekeeping:
		return "housekeeping"
	default:
		return fmt.Sprintf("ChannelKind(%d)", int(k))
	}
}

//Donor is a sample source with its baseline inflammation level
type Donor struct {
	Label    string
	Baseline float64
}

//Channel holds the formula parameters for one expression column
type Channel struct {
	Name string
	Kind ChannelKind
	//Constant is the constant term of housekeeping channels. Ignored for responders, they use the donor baseline
	Constant        float64
	DoseCoefficient float64
	NoiseStdDev     float64
}

//ChannelSet has one entry per expression column of CellRecord
type ChannelSet struct {
	MarkerGeneResponse Channel
	HousekeepingGene   Channel
	InflammatoryGene1  Channel
	InflammatoryGene2  Channel
	HousekeepingGene2  Channel
	CytokineResponder  Channel
	StableGene         Channel
}

//Ordered returns the channels in table column order
func (cs ChannelSet) Ordered() []Channel {
	return []Channel{
		cs.MarkerGeneResponse,
		cs.HousekeepingGene,
		cs.InflammatoryGene1,
		cs.InflammatoryGene2,
		cs.HousekeepingGene2,
		cs.CytokineResponder,
		cs.StableGene,
	}
}

//Config bundles every constant the generator needs
type Config struct {
	Donors   []Donor
	Doses    []float64
	Channels ChannelSet
}

var (
	ErrNoDonors       = errors.New("donor set is empty")
	ErrNoDoses        = errors.New("dose set is empty")
	ErrDuplicateDonor = errors.New("donor label used more than once")
	ErrInvalidChannel = errors.New("invalid channel parameters")
	ErrInvalidDose    = errors.New("dose is not a finite number")
)

//DefaultConfig returns the simulation constants: three donors, doses 0 to 100 ng/mL and seven expression channels
func DefaultConfig() Config {
	return Config{
		Donors: []Donor{
			{Label: "Donor_A", Baseline: 2.0},
			//Donor_B has a naturally higher baseline inflammation than A or C
			{Label: "Donor_B", Baseline: 4.5},
			{Label: "Donor_C", Baseline: 2.5},
		},
		Doses: []float64{0, 10, 50, 100},
		Channels: ChannelSet{
			MarkerGeneResponse: Channel{Name: "Marker_Gene_Response", Kind: Responder, DoseCoefficient: 0.15, NoiseStdDev: 1.5},
			HousekeepingGene:   Channel{Name: "Housekeeping_Gene", Kind: Housekeeping, Constant: 10.0, NoiseStdDev: 0.5},
			InflammatoryGene1:  Channel{Name: "Inflammatory_Gene_1", Kind: Responder, DoseCoefficient: 0.08, NoiseStdDev: 1.0},
			InflammatoryGene2:  Channel{Name: "Inflammatory_Gene_2", Kind: Responder, DoseCoefficient: 0.05, NoiseStdDev: 0.8},
			HousekeepingGene2:  Channel{Name: "Housekeeping_Gene_2", Kind: Housekeeping, Constant: 9.5, NoiseStdDev: 0.3},
			CytokineResponder:  Channel{Name: "Cytokine_Responder", Kind: Responder, DoseCoefficient: 0.12, NoiseStdDev: 1.2},
			StableGene:         Channel{Name: "Stable_Gene", Kind: Housekeeping, Constant: 8.8, NoiseStdDev: 0.4},
		},
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

//Validate checks that the config describes a closed, non-empty set of donors and doses and sane channel formulas
func (c Config) Validate() error {
	if len(c.Donors) == 0 {
		return ErrNoDonors
	}
	if len(c.Doses) == 0 {
		return ErrNoDoses
	}

	seen := make(map[string]bool, len(c.Donors))
	for _, d := range c.Donors {
		if seen[d.Label] {
			return fmt.Errorf("%q : %w", d.Label, ErrDuplicateDonor)
		}
		seen[d.Label] = true
		if !isFinite(d.Baseline) {
			return fmt.Errorf("donor %q has baseline %v : %w", d.Label, d.Baseline, ErrInvalidChannel)
		}
	}

	for i, dose := range c.Doses {
		if !isFinite(dose) {
			return fmt.Errorf("dose %v at index %v : %w", dose, i, ErrInvalidDose)
		}
	}

	for i, ch := range c.Channels.Ordered() {
		if ch.Name == "" {
			return fmt.Errorf("channel %v has no name : %w", i, ErrInvalidChannel)
		}
		if !isFinite(ch.NoiseStdDev) || ch.NoiseStdDev < 0 {
			return fmt.Errorf("channel %v has noise standard deviation %v : %w", ch.Name, ch.NoiseStdDev, ErrInvalidChannel)
		}
		if !isFinite(ch.Constant) || !isFinite(ch.DoseCoefficient) {
			return fmt.Errorf("channel %v has non finite coefficients : %w", ch.Name, ErrInvalidChannel)
		}
		switch ch.Kind {
		case Responder:
		case Housekeeping:
			if ch.DoseCoefficient != 0 {
				return fmt.Errorf("housekeeping channel %v has dose coefficient %v : %w", ch.Name, ch.DoseCoefficient, ErrInvalidChannel)
			}
		default:
			return fmt.Errorf("channel %v has unknown kind %v : %w", ch.Name, ch.Kind, ErrInvalidChannel)
		}
	}
	return nil
}

//Baseline looks up the baseline of the donor with the given label
func (c Config) Baseline(label string) (float64, bool) {
	for _, d := range c.Donors {
		if d.Label == label {
			return d.Baseline, true
		}
	}
	return 0, false
}

//HasDose reports whether dose is one of the configured levels
func (c Config) HasDose(dose float64) bool {
	for _, d := range c.Doses {
		if d == dose {
			return true
		}
	}
	return false
}

//MinMaxDose returns the lowest and highest configured dose
func (c Config) MinMaxDose() (float64, float64, error) {
	if len(c.Doses) == 0 {
		return 0, 0, ErrNoDoses
	}
	min, max := c.Doses[0], c.Doses[0]
	for _, d := range c.Doses[1:] {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max, nil
}
