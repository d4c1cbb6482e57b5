package doseAnalysis

import (
	"cellSim/cellGenerator"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/montanaflynn/stats"
)

//ChannelSummary describes the distribution of one expression column
type ChannelSummary struct {
	Channel  string
	Kind     cellGenerator.ChannelKind
	Mean     float64
	StdDev   float64
	Median   float64
	Min      float64
	Max      float64
	Negative int
}

//Summarize computes descriptive statistics for every channel. Negative counts how many values are below zero,
//which can only happen for housekeeping channels
func Summarize(records []cellGenerator.CellRecord, channels []cellGenerator.Channel) ([]ChannelSummary, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	if len(channels) != cellGenerator.NumExpressionChannels {
		return nil, fmt.Errorf("got %v channels : %w", len(channels), ErrChannelCount)
	}

	columns := make([]stats.Float64Data, len(channels))
	for i := range columns {
		columns[i] = make(stats.Float64Data, 0, len(records))
	}
	for _, r := range records {
		for chIDX, v := range r.Expression() {
			columns[chIDX] = append(columns[chIDX], v)
		}
	}

	summaries := make([]ChannelSummary, len(channels))
	for i, ch := range channels {
		col := columns[i]
		s := ChannelSummary{Channel: ch.Name, Kind: ch.Kind}
		var err error
		if s.Mean, err = col.Mean(); err != nil {
			return nil, fmt.Errorf("%v : mean : %v", ch.Name, err)
		}
		if s.Median, err = col.Median(); err != nil {
			return nil, fmt.Errorf("%v : median : %v", ch.Name, err)
		}
		if s.Min, err = col.Min(); err != nil {
			return nil, fmt.Errorf("%v : min : %v", ch.Name, err)
		}
		if s.Max, err = col.Max(); err != nil {
			return nil, fmt.Errorf("%v : max : %v", ch.Name, err)
		}
		//sample standard deviation is undefined for a single cell
		if len(col) > 1 {
			if s.StdDev, err = col.StandardDeviationSample(); err != nil {
				return nil, fmt.Errorf("%v : standard deviation : %v", ch.Name, err)
			}
		}
		for _, v := range col {
			if v < 0 {
				s.Negative++
			}
		}
		summaries[i] = s
	}
	return summaries, nil
}

//WriteSummary prints summaries as an aligned table
func WriteSummary(w io.Writer, summaries []ChannelSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "channel\tkind\tmean\tstd\tmedian\tmin\tmax\tnegative\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%d\t\n", s.Channel, s.Kind, s.Mean, s.StdDev, s.Median, s.Min, s.Max, s.Negative)
	}
	return tw.Flush()
}
