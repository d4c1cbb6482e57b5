package doseAnalysis

//Implementation of Welch's T-test as an Accumulator, comparing control dose cells with treated dose cells per channel

import (
	"cellSim/dosePlot"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrOneSetEmpty    = errors.New("cannot compute, at least one of the sets is empty")
	ErrTooFewSamples  = errors.New("cannot compute, at least one of the sets has less than two cells")
	ErrChannelsDiffer = errors.New("accumulators were created for different channels")
)

//TTestThreshold is the absolute t value above which a channel is considered dose responsive
const TTestThreshold = 4.5

type WelchTTest struct {
	lenControl            float64
	lenTreated            float64
	pwSumControl          []float64
	pwSumTreated          []float64
	pwSumOfSquaresControl []float64
	pwSumOfSquaresTreated []float64
	channels              []string
	fieldsToSave          []interface{}
}

//addPwSumFloat64 point wise adds all expression vectors to sum
func addPwSumFloat64(sum []float64, cells [][]float64) []float64 {
	for cellIDX := range cells {
		if len(cells[cellIDX]) != len(sum) {
			panic(fmt.Sprintf("sum has len %v but cell has %v channels", len(sum), len(cells[cellIDX])))
		}
		for pointIDX := range cells[cellIDX] {
			sum[pointIDX] += cells[cellIDX][pointIDX]
		}
	}
	return sum
}

//addPwSumOfSquaresFloat64 point wise adds the square of all expression values to sum
func addPwSumOfSquaresFloat64(sum []float64, cells [][]float64) []float64 {
	for cellIDX := range cells {
		if len(cells[cellIDX]) != len(sum) {
			panic(fmt.Sprintf("sum has len %v but cell has %v channels", len(sum), len(cells[cellIDX])))
		}
		for pointIDX := range cells[cellIDX] {
			sum[pointIDX] += cells[cellIDX][pointIDX] * cells[cellIDX][pointIDX]
		}
	}
	return sum
}

//NewWelchTTest creates a new WelchTTest instance.
//All calls to Update must contain exactly len(channels) entries per cell otherwise we panic
func NewWelchTTest(channels []string) Accumulator {
	return newWelchTTest(channels)
}

func newWelchTTest(channels []string) *WelchTTest {
	n := len(channels)
	bmv := &WelchTTest{
		pwSumControl:          make([]float64, n),
		pwSumTreated:          make([]float64, n),
		pwSumOfSquaresControl: make([]float64, n),
		pwSumOfSquaresTreated: make([]float64, n),
		channels:              append([]string(nil), channels...),
	}
	bmv.fieldsToSave = []interface{}{
		&bmv.lenControl,
		&bmv.lenTreated,
		&bmv.pwSumControl,
		&bmv.pwSumTreated,
		&bmv.pwSumOfSquaresControl,
		&bmv.pwSumOfSquaresTreated,
		&bmv.channels,
	}
	return bmv
}

func (bmv *WelchTTest) Name() string {
	return "Welch's T-Test"
}

func (bmv *WelchTTest) Channels() []string {
	return append([]string(nil), bmv.channels...)
}

func (bmv *WelchTTest) Update(control, treated [][]float64) {
	bmv.lenControl += float64(len(control))
	bmv.lenTreated += float64(len(treated))

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		bmv.pwSumControl = addPwSumFloat64(bmv.pwSumControl, control)
	}()
	go func() {
		defer wg.Done()
		bmv.pwSumTreated = addPwSumFloat64(bmv.pwSumTreated, treated)
	}()
	go func() {
		defer wg.Done()
		bmv.pwSumOfSquaresControl = addPwSumOfSquaresFloat64(bmv.pwSumOfSquaresControl, control)
	}()
	go func() {
		defer wg.Done()
		bmv.pwSumOfSquaresTreated = addPwSumOfSquaresFloat64(bmv.pwSumOfSquaresTreated, treated)
	}()

	wg.Wait()
}

//moments returns per channel means and unbiased variances of both sets
func (bmv *WelchTTest) moments() (meanControl, meanTreated, varControl, varTreated []float64, err error) {
	if bmv.lenControl == 0 || bmv.lenTreated == 0 {
		return nil, nil, nil, nil, ErrOneSetEmpty
	}
	if bmv.lenControl < 2 || bmv.lenTreated < 2 {
		return nil, nil, nil, nil, ErrTooFewSamples
	}
	n := len(bmv.channels)
	meanControl = make([]float64, n)
	meanTreated = make([]float64, n)
	varControl = make([]float64, n)
	varTreated = make([]float64, n)
	for i := 0; i < n; i++ {
		meanControl[i] = bmv.pwSumControl[i] / bmv.lenControl
		meanTreated[i] = bmv.pwSumTreated[i] / bmv.lenTreated

		varControl[i] = (bmv.pwSumOfSquaresControl[i] - bmv.lenControl*meanControl[i]*meanControl[i]) / (bmv.lenControl - 1)
		varTreated[i] = (bmv.pwSumOfSquaresTreated[i] - bmv.lenTreated*meanTreated[i]*meanTreated[i]) / (bmv.lenTreated - 1)
		//cancellation may leave tiny negative values for constant channels
		varControl[i] = math.Max(0, varControl[i])
		varTreated[i] = math.Max(0, varTreated[i])
	}
	return meanControl, meanTreated, varControl, varTreated, nil
}

//Finalize returns t = (mean treated - mean control) / sqrt(var control/n control + var treated/n treated) per channel
func (bmv *WelchTTest) Finalize() ([]float64, error) {
	meanControl, meanTreated, varControl, varTreated, err := bmv.moments()
	if err != nil {
		return nil, err
	}

	tValues := make([]float64, len(bmv.channels))
	for i := range tValues {
		denominator := math.Sqrt(varControl[i]/bmv.lenControl + varTreated[i]/bmv.lenTreated)
		tValues[i] = (meanTreated[i] - meanControl[i]) / denominator
	}
	return tValues, nil
}

//ChannelTTest is the full Welch test outcome for one channel
type ChannelTTest struct {
	Channel     string  `csv:"Channel"`
	MeanControl float64 `csv:"Mean_Control"`
	MeanTreated float64 `csv:"Mean_Treated"`
	T           float64 `csv:"T"`
	DF          float64 `csv:"DF"`
	P           float64 `csv:"P"`
	Significant bool    `csv:"Significant"`
}

//Report extends Finalize with Welch-Satterthwaite degrees of freedom and two sided p values
func (bmv *WelchTTest) Report() ([]ChannelTTest, error) {
	tValues, err := bmv.Finalize()
	if err != nil {
		return nil, err
	}
	meanControl, meanTreated, varControl, varTreated, err := bmv.moments()
	if err != nil {
		return nil, err
	}

	report := make([]ChannelTTest, len(bmv.channels))
	for i := range report {
		a := varControl[i] / bmv.lenControl
		b := varTreated[i] / bmv.lenTreated
		df := (a + b) * (a + b) / (a*a/(bmv.lenControl-1) + b*b/(bmv.lenTreated-1))
		p := math.NaN()
		if !math.IsNaN(df) && df > 0 {
			p = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(tValues[i]))
		}
		report[i] = ChannelTTest{
			Channel:     bmv.channels[i],
			MeanControl: meanControl[i],
			MeanTreated: meanTreated[i],
			T:           tValues[i],
			DF:          df,
			P:           p,
			Significant: math.Abs(tValues[i]) > TTestThreshold,
		}
	}
	return report, nil
}

func sameChannels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (bmv *WelchTTest) Merge(other Accumulator) error {
	otherAsBMV, ok := other.(*WelchTTest)
	if !ok {
		return fmt.Errorf("cannot merge %s with %s", bmv.Name(), other.Name())
	}
	if !sameChannels(bmv.channels, otherAsBMV.channels) {
		return ErrChannelsDiffer
	}
	bmv.lenControl += otherAsBMV.lenControl
	bmv.lenTreated += otherAsBMV.lenTreated

	for i := range bmv.channels {
		bmv.pwSumOfSquaresTreated[i] += otherAsBMV.pwSumOfSquaresTreated[i]
		bmv.pwSumOfSquaresControl[i] += otherAsBMV.pwSumOfSquaresControl[i]

		bmv.pwSumTreated[i] += otherAsBMV.pwSumTreated[i]
		bmv.pwSumControl[i] += otherAsBMV.pwSumControl[i]
	}
	return nil
}

func (bmv *WelchTTest) Reset() {
	bmv.lenControl = 0
	bmv.lenTreated = 0
	for i := range bmv.channels {
		bmv.pwSumControl[i] = 0
		bmv.pwSumTreated[i] = 0
		bmv.pwSumOfSquaresControl[i] = 0
		bmv.pwSumOfSquaresTreated[i] = 0
	}
}

func (bmv *WelchTTest) DeepCopy() Accumulator {
	res := newWelchTTest(bmv.channels)
	res.lenControl = bmv.lenControl
	res.lenTreated = bmv.lenTreated
	copy(res.pwSumControl, bmv.pwSumControl)
	copy(res.pwSumTreated, bmv.pwSumTreated)
	copy(res.pwSumOfSquaresControl, bmv.pwSumOfSquaresControl)
	copy(res.pwSumOfSquaresTreated, bmv.pwSumOfSquaresTreated)
	return res
}

//Encode applies gob to each field of bmv
func (bmv *WelchTTest) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	for _, v := range bmv.fieldsToSave {
		if err := encoder.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

//Decode decodes a WelchTTest that has been encoded with Encode
func (bmv *WelchTTest) Decode(r io.Reader) error {
	decoder := gob.NewDecoder(r)
	for _, v := range bmv.fieldsToSave {
		if err := decoder.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

//Plot creates a bar plot of the t values per channel with lines at +-TTestThreshold and stores the result in writer
func (bmv *WelchTTest) Plot(values []float64, writer io.Writer) error {
	p, err := dosePlot.PlotTValues(values, bmv.channels, TTestThreshold)
	if err != nil {
		return err
	}
	return dosePlot.Store(p, writer)
}
