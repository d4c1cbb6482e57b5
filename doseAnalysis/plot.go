package doseAnalysis

import (
	"cellSim/dosePlot"
	"io"
)

//DoseResponseSeries converts fits into one plot series per channel with the per dose means
func DoseResponseSeries(fits []ChannelFit) []dosePlot.Series {
	series := make([]dosePlot.Series, 0, len(fits))
	for _, f := range fits {
		s := dosePlot.Series{
			Name:  f.Channel.Name,
			Doses: make([]float64, 0, len(f.Levels)),
			Means: make([]float64, 0, len(f.Levels)),
		}
		for _, l := range f.Levels {
			s.Doses = append(s.Doses, l.Dose)
			s.Means = append(s.Means, l.Mean)
		}
		series = append(series, s)
	}
	return series
}

//PlotDoseResponse renders the mean expression per dose of every channel as png to w
func PlotDoseResponse(fits []ChannelFit, w io.Writer) error {
	p, err := dosePlot.PlotDoseResponse(DoseResponseSeries(fits))
	if err != nil {
		return err
	}
	return dosePlot.Store(p, w)
}
