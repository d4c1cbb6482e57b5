//Package doseAnalysis provides a repository of statistics to be computed on generated cells, most notably the
//dose effect per expression channel
package doseAnalysis

import (
	"fmt"
	"io"
	"sort"
)

//Contains the Accumulator interface and the API to instantiate different accumulators at runtime.
//If you want to add a new statistic, implement it using the Accumulator interface and add a new mapping
//to availableAccumulators to make it accessible from the command line

//AccumulatorCreator is the common constructor type for Accumulator. channels names the columns of the
//expression vectors passed to Update
type AccumulatorCreator func(channels []string) Accumulator

//Accumulator is an abstraction for computations comparing control cells with treated cells.
//Conceptually the computation is split in two functions: Update which adds new data and may change the state
//and Finalize, which produces one value per channel and must be IDEMPOTENT, i.e. not change the state
//of the object. Merge allows running multiple instances in parallel and still producing the total result
type Accumulator interface {
	//Name returns a descriptive name for the performed computation
	Name() string
	//Channels returns the channel names passed to the constructor
	Channels() []string
	//Update adds the expression vectors of control and treated cells to the internal state
	Update(control, treated [][]float64)
	//Finalize returns the result of the computation based on the current state, one value per channel
	Finalize() ([]float64, error)
	//Merge updates the state of this Accumulator with the one of other (equal to calling Update on all data
	//that has been added to other)
	Merge(other Accumulator) error
	//Reset the internal state to be equal to the state of an object created by the constructor
	Reset()
	//DeepCopy returns a copy of this accumulator and all of its internal state
	DeepCopy() Accumulator
	Encode(w io.Writer) error
	Decode(r io.Reader) error
}

//Plotable is implemented by accumulators that know how to visualise their result
type Plotable interface {
	//Plot values according to the implementation and store to writer
	Plot(values []float64, writer io.Writer) error
}

//availableAccumulators hand edited list. If you add a new accumulator add it to the list
var availableAccumulators = map[string]AccumulatorCreator{
	"ttest": AccumulatorCreator(NewWelchTTest),
}

//GetAvailableAccumulators returns a sorted slice with all valid names that may be passed to GetAccumulatorCreator
func GetAvailableAccumulators() []string {
	names := make([]string, 0, len(availableAccumulators))
	for key := range availableAccumulators {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

//GetAccumulatorCreator returns the AccumulatorCreator that is registered for name or an error if name is not found
func GetAccumulatorCreator(name string) (AccumulatorCreator, error) {
	creator, ok := availableAccumulators[name]
	if !ok {
		return nil, fmt.Errorf("unknown accumulator %q, available are %v", name, GetAvailableAccumulators())
	}

	return creator, nil
}
