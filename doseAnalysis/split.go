package doseAnalysis

import (
	"cellSim/cellGenerator"
	"errors"
	"fmt"
)

var ErrSameDose = errors.New("control and treated dose must differ")

//SplitByDose returns the expression vectors of all cells treated with controlDose and of all cells treated
//with treatedDose. Cells with any other dose are skipped
func SplitByDose(records []cellGenerator.CellRecord, controlDose, treatedDose float64) (control, treated [][]float64, err error) {
	if controlDose == treatedDose {
		return nil, nil, fmt.Errorf("both doses are %v : %w", controlDose, ErrSameDose)
	}
	control = make([][]float64, 0)
	treated = make([][]float64, 0)
	for _, r := range records {
		switch r.CytokineDose {
		case controlDose:
			control = append(control, r.Expression())
		case treatedDose:
			treated = append(treated, r.Expression())
		}
	}
	return control, treated, nil
}

//CompareDoses runs the accumulator created by creator on the control and treated cells in records
func CompareDoses(records []cellGenerator.CellRecord, channels []string, controlDose, treatedDose float64, creator AccumulatorCreator) (Accumulator, error) {
	if len(channels) != cellGenerator.NumExpressionChannels {
		return nil, fmt.Errorf("got %v channel names, cells have %v channels", len(channels), cellGenerator.NumExpressionChannels)
	}
	control, treated, err := SplitByDose(records, controlDose, treatedDose)
	if err != nil {
		return nil, err
	}
	acc := creator(channels)
	acc.Update(control, treated)
	return acc, nil
}

//ChannelNames returns the names of the channels in column order
func ChannelNames(channels []cellGenerator.Channel) []string {
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name
	}
	return names
}
