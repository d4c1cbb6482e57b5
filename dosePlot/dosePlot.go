package dosePlot

import (
	"fmt"
	"io"
	"math"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

//Series is one line of a dose response plot
type Series struct {
	Name  string
	Doses []float64
	Means []float64
}

func (s Series) Len() int {
	return len(s.Doses)
}

func (s Series) XY(index int) (x, y float64) {
	return s.Doses[index], s.Means[index]
}

func maxAbsFloat64(s []float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("slice is empty")
	}
	max := math.Abs(s[0])
	for i := range s {
		if v := math.Abs(s[i]); v > max {
			max = v
		}
	}
	return max, nil
}

//PlotTValues creates a bar plot with one bar per channel and horizontal lines at +-threshold
func PlotTValues(tValues []float64, channels []string, threshold float64) (*plot.Plot, error) {
	if len(tValues) != len(channels) {
		return nil, fmt.Errorf("got %v t values for %v channels", len(tValues), len(channels))
	}
	maxY, err := maxAbsFloat64(tValues)
	if err != nil {
		return nil, fmt.Errorf("failed to determine max t value : %v", err)
	}
	if math.IsNaN(maxY) || math.IsInf(maxY, 0) {
		return nil, fmt.Errorf("t values contain non finite entries")
	}

	p := plot.New()
	p.Title.Text = "Dose effect (Welch's T-Test)"
	p.X.Label.Text = "Channel"
	p.Y.Label.Text = "T-Test Value"

	bars, err := plotter.NewBarChart(plotter.Values(tValues), vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed creating bars for t values : %v", err)
	}
	bars.Color = colornames.Steelblue
	bars.LineStyle.Width = vg.Length(0)

	upper := plotter.NewFunction(func(x float64) float64 {
		return threshold
	})
	upper.Color = colornames.Red
	lower := plotter.NewFunction(func(x float64) float64 {
		return -threshold
	})
	lower.Color = colornames.Red

	p.Add(bars, upper, lower)
	p.NominalX(channels...)
	p.Legend.Add("T-Values", bars)
	p.Legend.Add("Threshold", upper)
	p.Legend.Top = true
	p.Y.Max = math.Max(maxY, threshold) + 2
	p.Y.Min = -p.Y.Max

	return p, nil
}

//PlotDoseResponse creates a line plot with one line per series, mean expression over dose
func PlotDoseResponse(series []Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series given")
	}
	p := plot.New()
	p.Title.Text = "Dose response"
	p.X.Label.Text = "Cytokine dose (ng/mL)"
	p.Y.Label.Text = "Mean expression"

	for i, s := range series {
		if len(s.Doses) != len(s.Means) {
			return nil, fmt.Errorf("series %v has %v doses but %v means", s.Name, len(s.Doses), len(s.Means))
		}
		line, points, err := plotter.NewLinePoints(s)
		if err != nil {
			return nil, fmt.Errorf("failed creating line for %v : %v", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(s.Name, line, points)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

//Store renders p as 800x600 png to out
func Store(p *plot.Plot, out io.Writer) error {
	writerTo, err := p.WriterTo(800, 600, "png")
	if err != nil {
		return fmt.Errorf("failed to prepare plot for writing : %v", err)
	}
	if _, err := writerTo.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write plot : %v", err)
	}
	return nil
}
