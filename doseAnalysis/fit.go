package doseAnalysis

import (
	"cellSim/cellGenerator"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoRecords    = errors.New("no records given")
	ErrTooFewDoses  = errors.New("dose response needs at least two distinct doses")
	ErrChannelCount = errors.New("channel count does not match the cell records")
)

//DoseLevel is the mean expression of one channel for all cells of one dose
type DoseLevel struct {
	Dose   float64
	Cells  int
	Mean   float64
	StdErr float64
}

//ChannelFit is the least squares line expression = Intercept + Slope*dose for one channel
type ChannelFit struct {
	Channel     cellGenerator.Channel
	Intercept   float64
	Slope       float64
	Correlation float64
	Levels      []DoseLevel
}

//distinctDoses returns the sorted distinct doses of records
func distinctDoses(records []cellGenerator.CellRecord) []float64 {
	seen := make(map[float64]bool)
	doses := make([]float64, 0)
	for _, r := range records {
		if !seen[r.CytokineDose] {
			seen[r.CytokineDose] = true
			doses = append(doses, r.CytokineDose)
		}
	}
	sort.Float64s(doses)
	return doses
}

//fitChannel regresses column on doses and computes per dose means
func fitChannel(ch cellGenerator.Channel, doses, column []float64, levels []float64) ChannelFit {
	intercept, slope := stat.LinearRegression(doses, column, nil, false)
	fit := ChannelFit{
		Channel:     ch,
		Intercept:   intercept,
		Slope:       slope,
		Correlation: stat.Correlation(doses, column, nil),
		Levels:      make([]DoseLevel, 0, len(levels)),
	}

	byDose := make(map[float64][]float64, len(levels))
	for i, d := range doses {
		byDose[d] = append(byDose[d], column[i])
	}
	for _, d := range levels {
		values := byDose[d]
		mean, std := stat.MeanStdDev(values, nil)
		stdErr := math.NaN()
		if len(values) > 1 {
			stdErr = stat.StdErr(std, float64(len(values)))
		}
		fit.Levels = append(fit.Levels, DoseLevel{Dose: d, Cells: len(values), Mean: mean, StdErr: stdErr})
	}
	return fit
}

//FitDoseResponse fits a line through expression vs dose for every channel. Channels are processed by workers goroutines
func FitDoseResponse(ctx context.Context, records []cellGenerator.CellRecord, channels []cellGenerator.Channel, workers int) ([]ChannelFit, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	if len(channels) != cellGenerator.NumExpressionChannels {
		return nil, fmt.Errorf("got %v channels : %w", len(channels), ErrChannelCount)
	}
	levels := distinctDoses(records)
	if len(levels) < 2 {
		return nil, fmt.Errorf("got doses %v : %w", levels, ErrTooFewDoses)
	}
	if workers < 1 {
		workers = 1
	}

	//column major copy of the expression matrix
	doses := make([]float64, len(records))
	columns := make([][]float64, len(channels))
	for i := range columns {
		columns[i] = make([]float64, len(records))
	}
	for rowIDX, r := range records {
		doses[rowIDX] = r.CytokineDose
		for chIDX, v := range r.Expression() {
			columns[chIDX][rowIDX] = v
		}
	}

	//DO NOT CHANGE SIZE, workers write results by index
	fits := make([]ChannelFit, len(channels))

	group, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for chIDX := range jobs {
				fits[chIDX] = fitChannel(channels[chIDX], doses, columns[chIDX], levels)
			}
			return nil
		})
	}

	fed := 0
feedLoop:
	for fed < len(channels) {
		select {
		case <-ctx.Done():
			break feedLoop
		case jobs <- fed:
			fed++
		}
	}
	close(jobs)

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if fed != len(channels) {
		return nil, fmt.Errorf("aborted due to cancelled context : %w", ctx.Err())
	}
	return fits, nil
}

//fitRow is the flat table representation of ChannelFit, one row per channel and dose
type fitRow struct {
	Channel     string  `csv:"Channel"`
	Kind        string  `csv:"Kind"`
	Intercept   float64 `csv:"Intercept"`
	Slope       float64 `csv:"Slope"`
	Correlation float64 `csv:"Correlation"`
	Dose        float64 `csv:"Dose"`
	Cells       int     `csv:"Cells"`
	Mean        float64 `csv:"Mean"`
	StdErr      float64 `csv:"StdErr"`
}

//WriteFits writes one row per channel and dose level to w
func WriteFits(w io.Writer, fits []ChannelFit) error {
	rows := make([]fitRow, 0)
	for _, f := range fits {
		for _, l := range f.Levels {
			rows = append(rows, fitRow{
				Channel:     f.Channel.Name,
				Kind:        f.Channel.Kind.String(),
				Intercept:   f.Intercept,
				Slope:       f.Slope,
				Correlation: f.Correlation,
				Dose:        l.Dose,
				Cells:       l.Cells,
				Mean:        l.Mean,
				StdErr:      l.StdErr,
			})
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write fits : %v", err)
	}
	return nil
}

//WriteTTestReport writes the per channel Welch test outcome to w
func WriteTTestReport(w io.Writer, report []ChannelTTest) error {
	if report == nil {
		report = []ChannelTTest{}
	}
	if err := gocsv.Marshal(report, w); err != nil {
		return fmt.Errorf("failed to write t-test report : %v", err)
	}
	return nil
}
