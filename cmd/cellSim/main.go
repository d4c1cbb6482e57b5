//Package main provides a cli interface that generates a mock single cell expression table
package main

import (
	"bytes"
	"cellSim/cellGenerator"
	"cellSim/cellMetrics"
	"cellSim/cellTable"
	"cellSim/doseAnalysis"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	"github.com/prometheus/client_golang/prometheus"
)

//application bundles the command line configuration options
type application struct {
	outPath            string
	cells              int
	seed               int64
	seeded             bool
	workers            int
	previewRows        int
	analysisDir        string
	controlDose        float64
	treatedDose        float64
	metricsFile        string
	infoLog            *log.Logger
	accumulatorCreator doseAnalysis.AccumulatorCreator
	config             cellGenerator.Config
}

//closeWithErrLog is a helper that calls Close on c and prints a log message if an error occurs
func closeWithErrLog(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("failed to close %v : %v", name, err)
	}
}

var errCollisionAvoidanceFailed = errors.New("unable to avoid file/folder name collision, using returned name may overwrite data ")

//defaultCreateCollisionFreeName is a convenience wrapper for createCollisionFreeName checking for
//collision using os.Stat
func defaultCreateCollisionFreeName(outPath string) (string, error) {
	return createCollisionFreeName(outPath, func(path string) bool {
		_, err := os.Stat(path)
		return !os.IsNotExist(err)
	})
}

//createCollisionFreeName checks if outPath already exists and tries to add numbers from 1 to 100 as suffix
//to find a unused name. If all are taken errCollisionAvoidanceFailed is returned
func createCollisionFreeName(outPath string, doesFileExist func(path string) bool) (string, error) {
	outPathDir := filepath.Dir(outPath)

	//split filename by "." to separate name and extensions (if it exists, else set it to "")
	fileNameTokens := strings.Split(filepath.Base(outPath), ".")
	fileExtension := ""
	if len(fileNameTokens) > 1 {
		fileExtension = fileNameTokens[1]
	}

	nameCandidate := filepath.Base(outPath)
	suffix := 1
	fileNameCollision := doesFileExist(outPath)
	for fileNameCollision && suffix < 100 {
		if fileExtension != "" {
			nameCandidate = fmt.Sprintf("%v-%v.%v", strings.Split(path.Base(outPath), ".")[0], suffix, fileExtension)
		} else {
			nameCandidate = fmt.Sprintf("%v-%v", strings.Split(path.Base(outPath), ".")[0], suffix)
		}
		fileNameCollision = doesFileExist(filepath.Join(outPathDir, nameCandidate))
		if fileNameCollision {
			suffix++
		}

	}
	result := filepath.Join(outPathDir, nameCandidate)
	if fileNameCollision {
		return result, errCollisionAvoidanceFailed
	}

	return result, nil
}

func doseLabel(dose float64) string {
	return strconv.FormatFloat(dose, 'f', -1, 64)
}

//StorePlot renders values with plotable into plot-<nameSuffix>.png
func StorePlot(values []float64, plotable doseAnalysis.Plotable, folderPath, nameSuffix string) error {
	plotPath := filepath.Join(folderPath, fmt.Sprintf("plot-%s.png", nameSuffix))
	fmt.Printf("Storing plot in %v\n", plotPath)
	plotFile, err := os.Create(plotPath)
	if err != nil {
		return fmt.Errorf("failed to create plot file : %v", err)
	}
	defer closeWithErrLog(plotFile.Name(), plotFile)

	if err := plotable.Plot(values, plotFile); err != nil {
		return err
	}
	return plotFile.Sync()
}

//StoreRaw saves the accumulator state as binary encoding of the struct
func StoreRaw(acc doseAnalysis.Accumulator, folderPath, nameSuffix string) error {
	gobFile, err := os.Create(filepath.Join(folderPath, fmt.Sprintf("rawState-%s.bin", nameSuffix)))
	if err != nil {
		return fmt.Errorf("failed to create gob file : %v", err)
	}
	defer closeWithErrLog(gobFile.Name(), gobFile)

	if err := acc.Encode(gobFile); err != nil {
		return fmt.Errorf("failed to store binary encoding of state : %v", err)
	}
	return gobFile.Sync()
}

//StoreAsCSV writes a header row with the channel names and one row with the results
func StoreAsCSV(result []float64, channels []string, folderPath, nameSuffix string) error {
	valuesAsStrings := make([]string, len(result))
	for i := range result {
		valuesAsStrings[i] = fmt.Sprintf("%f", result[i])
	}
	resultFile, err := os.Create(filepath.Join(folderPath, fmt.Sprintf("values-%s.csv", nameSuffix)))
	if err != nil {
		return fmt.Errorf("failed to create output file : %v", err)
	}
	defer closeWithErrLog(resultFile.Name(), resultFile)

	csvWriter := csv.NewWriter(resultFile)
	if err := csvWriter.WriteAll([][]string{channels, valuesAsStrings}); err != nil {
		return fmt.Errorf("failed to write to outputfile %v : %v", resultFile.Name(), err)
	}
	return resultFile.Sync()
}

//StoreReport writes the full Welch test report into tvalues-<nameSuffix>.csv
func StoreReport(report []doseAnalysis.ChannelTTest, folderPath, nameSuffix string) error {
	reportFile, err := os.Create(filepath.Join(folderPath, fmt.Sprintf("tvalues-%s.csv", nameSuffix)))
	if err != nil {
		return fmt.Errorf("failed to create report file : %v", err)
	}
	defer closeWithErrLog(reportFile.Name(), reportFile)

	if err := doseAnalysis.WriteTTestReport(reportFile, report); err != nil {
		return err
	}
	return reportFile.Sync()
}

//StoreFits writes the dose response table and plot
func StoreFits(fits []doseAnalysis.ChannelFit, folderPath string) error {
	fitsFile, err := os.Create(filepath.Join(folderPath, "dose-fits.csv"))
	if err != nil {
		return fmt.Errorf("failed to create fits file : %v", err)
	}
	defer closeWithErrLog(fitsFile.Name(), fitsFile)
	if err := doseAnalysis.WriteFits(fitsFile, fits); err != nil {
		return err
	}
	if err := fitsFile.Sync(); err != nil {
		return err
	}

	plotFile, err := os.Create(filepath.Join(folderPath, "plot-dose-response.png"))
	if err != nil {
		return fmt.Errorf("failed to create plot file : %v", err)
	}
	defer closeWithErrLog(plotFile.Name(), plotFile)
	if err := doseAnalysis.PlotDoseResponse(fits, plotFile); err != nil {
		return fmt.Errorf("failed to plot dose response : %v", err)
	}
	return plotFile.Sync()
}

//Store writes every artifact of the dose comparison. It keeps going after the first error and reports all of them
func Store(result []float64, acc doseAnalysis.Accumulator, fits []doseAnalysis.ChannelFit, folderPath, suffix string) error {
	errList := make([]error, 0)

	if err := StoreAsCSV(result, acc.Channels(), folderPath, suffix); err != nil {
		errList = append(errList, fmt.Errorf("failed to save as csv file : %v", err))
	}
	if welch, ok := acc.(*doseAnalysis.WelchTTest); ok {
		report, err := welch.Report()
		if err == nil {
			err = StoreReport(report, folderPath, suffix)
		}
		if err != nil {
			errList = append(errList, fmt.Errorf("failed to save report : %v", err))
		}
	}
	if err := StoreRaw(acc, folderPath, suffix); err != nil {
		errList = append(errList, fmt.Errorf("failed to save raw data : %v", err))
	}
	if plotable, ok := acc.(doseAnalysis.Plotable); ok {
		if err := StorePlot(result, plotable, folderPath, "tvalues-"+suffix); err != nil {
			errList = append(errList, fmt.Errorf("failed to plot : %v", err))
		}
	}
	if err := StoreFits(fits, folderPath); err != nil {
		errList = append(errList, fmt.Errorf("failed to save dose response : %v", err))
	}

	if len(errList) == 0 {
		return nil
	}

	mergedErrStr := "failed to (fully) save analysis("
	for _, v := range errList {
		mergedErrStr += v.Error() + ","
	}
	mergedErrStr += ")"
	return errors.New(mergedErrStr)
}

//recordSize is the in memory size of one record, the labels are shared with the config
var recordSize = uint64(reflect.TypeOf(cellGenerator.CellRecord{}).Size())

//parseAndValidateFlags parses args and returns the parsed values if all logic checks pass.
//Otherwise a multiline error is returned that also contains an overview over all flags
func parseAndValidateFlags(args []string) (*application, error) {

	usageBuf := &bytes.Buffer{}
	cmdFlags := flag.NewFlagSet("cellSim", flag.ContinueOnError)
	cmdFlags.SetOutput(usageBuf)

	config := cellGenerator.DefaultConfig()
	minDose, maxDose, err := config.MinMaxDose()
	if err != nil {
		return nil, err
	}

	outPath := cmdFlags.String("out", "data.csv", "Path of the generated table. Existing files are overwritten")
	cells := cmdFlags.Int("cells", 1000, "Number of cells to simulate")
	seed := cmdFlags.Int64("seed", 0, "Seed for the pseudo RNG. If not set, every run produces different data")
	workers := cmdFlags.Int("workers", 1, "Number of goroutines generating cells. 1 runs the plain sequential loop, more use sharded generation")
	previewRows := cmdFlags.Int("preview", 5, "Number of rows printed after generation")
	analysisDir := cmdFlags.String("analysisDir", "", "If set, dose analysis results are saved to this folder (a suffix is added if it exists)")
	analysisName := cmdFlags.String("analysis", "ttest", fmt.Sprintf("Choose which of the following computations compares control and treated cells: %s", doseAnalysis.GetAvailableAccumulators()))
	controlDose := cmdFlags.Float64("controlDose", minDose, "Dose of the control group for the analysis")
	treatedDose := cmdFlags.Float64("treatedDose", maxDose, "Dose of the treated group for the analysis")
	metricsFile := cmdFlags.String("metricsFile", "", "If set, generation metrics are written to this file in prometheus text format")
	verbose := cmdFlags.Bool("verbose", false, "Log progress of sharded generation")
	var accumulatorCreator doseAnalysis.AccumulatorCreator
	cmdFlags.PrintDefaults()

	if err := cmdFlags.Parse(args); err != nil {
		return nil, fmt.Errorf("%v\n%s", err, usageBuf.String())
	}
	explicitlySet := make(map[string]bool)
	cmdFlags.Visit(func(f *flag.Flag) {
		explicitlySet[f.Name] = true
	})

	err = func() (descriptiveError error) {
		//append usage string if we return an error
		defer func() {
			if descriptiveError != nil {
				descriptiveError = fmt.Errorf("%v\nUsage:\n%s", descriptiveError.Error(), usageBuf.String())
			}
		}()

		if cmdFlags.NArg() != 0 {
			return fmt.Errorf("unexpected arguments %v", cmdFlags.Args())
		}
		if *outPath == "" {
			return fmt.Errorf("please set out to a file path")
		}
		if *cells < 0 {
			return fmt.Errorf("please set cells to a non negative number : %w", cellGenerator.ErrNegativeCount)
		}
		//TotalMemory returns 0 if the platform is not supported
		if total := memory.TotalMemory(); total > 0 && uint64(*cells) > total/recordSize {
			return fmt.Errorf("%v cells need more than the %v MB of system memory", *cells, total/(1024*1024))
		}
		if *workers < 1 {
			return fmt.Errorf("please set workers to a number in [1,%v]", runtime.NumCPU())
		}
		if *previewRows < 0 {
			return fmt.Errorf("please set preview to a non negative number")
		}
		if !config.HasDose(*controlDose) {
			return fmt.Errorf("control dose %v is not one of %v", *controlDose, config.Doses)
		}
		if !config.HasDose(*treatedDose) {
			return fmt.Errorf("treated dose %v is not one of %v", *treatedDose, config.Doses)
		}
		if *controlDose == *treatedDose {
			return fmt.Errorf("control and treated dose are both %v : %w", *controlDose, doseAnalysis.ErrSameDose)
		}

		var err error
		accumulatorCreator, err = doseAnalysis.GetAccumulatorCreator(*analysisName)
		if err != nil {
			return fmt.Errorf("failed to instantiate analysis \"%v\": %v", *analysisName, err)
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	infoLog := log.New(io.Discard, "", 0)
	if *verbose {
		infoLog = log.New(os.Stderr, "", log.LstdFlags)
	}

	return &application{
		outPath:            *outPath,
		cells:              *cells,
		seed:               *seed,
		seeded:             explicitlySet["seed"],
		workers:            *workers,
		previewRows:        *previewRows,
		analysisDir:        *analysisDir,
		controlDose:        *controlDose,
		treatedDose:        *treatedDose,
		metricsFile:        *metricsFile,
		infoLog:            infoLog,
		accumulatorCreator: accumulatorCreator,
		config:             config,
	}, nil
}

//generate runs the sequential loop for a single worker and sharded generation otherwise
func generate(ctx context.Context, app *application, observer cellGenerator.Observer) ([]cellGenerator.CellRecord, error) {
	if app.workers <= 1 {
		rng := cellGenerator.NewUnseededRand()
		if app.seeded {
			rng = cellGenerator.NewSeededRand(app.seed)
		}
		g, err := cellGenerator.NewGenerator(app.config, rng, observer)
		if err != nil {
			return nil, err
		}
		return g.Generate(app.cells)
	}

	seed := app.seed
	if !app.seeded {
		seed = time.Now().UnixNano()
		log.Printf("No seed given, sharded generation uses seed %v", seed)
	}
	return cellGenerator.GenerateParallel(ctx, app.config, seed, app.cells, cellGenerator.ParallelConfig{
		Workers:  app.workers,
		Observer: observer,
		InfoLog:  app.infoLog,
	})
}

//errAnalysisSkipped signals that records do not contain enough cells for the dose comparison
var errAnalysisSkipped = errors.New("not enough cells for the dose analysis")

//analyse compares control and treated cells and fits the dose response, results are stored in a fresh folder.
//If a dose group has too few cells nothing is stored and errAnalysisSkipped is returned
func analyse(ctx context.Context, app *application, records []cellGenerator.CellRecord) error {
	channels := app.config.Channels.Ordered()
	acc, err := doseAnalysis.CompareDoses(records, doseAnalysis.ChannelNames(channels), app.controlDose, app.treatedDose, app.accumulatorCreator)
	if err != nil {
		return err
	}
	values, err := acc.Finalize()
	if errors.Is(err, doseAnalysis.ErrOneSetEmpty) || errors.Is(err, doseAnalysis.ErrTooFewSamples) {
		return fmt.Errorf("%v : %w", err, errAnalysisSkipped)
	}
	if err != nil {
		return fmt.Errorf("failed to compute %v : %v", acc.Name(), err)
	}
	fits, err := doseAnalysis.FitDoseResponse(ctx, records, channels, runtime.NumCPU())
	if errors.Is(err, doseAnalysis.ErrTooFewDoses) {
		return fmt.Errorf("%v : %w", err, errAnalysisSkipped)
	}
	if err != nil {
		return fmt.Errorf("failed to fit dose response : %v", err)
	}

	folder, err := defaultCreateCollisionFreeName(app.analysisDir)
	if err != nil {
		if errors.Is(err, errCollisionAvoidanceFailed) {
			//deliberate decision to not delete files/folders as the latter might also delete unexpected files
			//instead we just overwrite
			log.Printf("failed to avoid file name collision, overwriting %v", folder)
		} else {
			folder = filepath.Join(os.TempDir(), strconv.FormatInt(rand.Int63(), 10))
			log.Printf("Failed to generate output folder name, resorting to %v\n", folder)
		}
	}
	if err := os.MkdirAll(folder, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create analysis directory %v : %v", folder, err)
	}

	suffix := fmt.Sprintf("%s-vs-%s", doseLabel(app.controlDose), doseLabel(app.treatedDose))
	if err := Store(values, acc, fits, folder, suffix); err != nil {
		return err
	}
	log.Printf("Stored analysis results in %v", folder)
	return nil
}

//run generates, writes and previews the table and produces the optional analysis and metrics outputs
func run(ctx context.Context, app *application, stdout io.Writer) error {
	var observer cellGenerator.Observer
	var collector *cellMetrics.Collector
	registry := prometheus.NewRegistry()
	if app.metricsFile != "" {
		var err error
		collector, err = cellMetrics.NewCollector(registry)
		if err != nil {
			return err
		}
		observer = collector
	}

	startTime := time.Now()
	records, err := generate(ctx, app, observer)
	if err != nil {
		return fmt.Errorf("failed to generate cells : %v", err)
	}
	log.Printf("Generated %v cells in %v", len(records), time.Since(startTime))
	if collector != nil {
		collector.ObserveDuration(time.Since(startTime))
	}

	if err := cellTable.WriteFile(app.outPath, records); err != nil {
		return fmt.Errorf("failed to write %v : %v", app.outPath, err)
	}

	shownRows := app.previewRows
	if shownRows > len(records) {
		shownRows = len(records)
	}
	fmt.Fprintf(stdout, "Data generated! First %d rows:\n", shownRows)
	if err := cellTable.Preview(stdout, records, app.previewRows); err != nil {
		return fmt.Errorf("failed to print preview : %v", err)
	}
	if len(records) > 0 {
		summaries, err := doseAnalysis.Summarize(records, app.config.Channels.Ordered())
		if err != nil {
			return fmt.Errorf("failed to summarize : %v", err)
		}
		fmt.Fprintln(stdout)
		if err := doseAnalysis.WriteSummary(stdout, summaries); err != nil {
			return fmt.Errorf("failed to print summary : %v", err)
		}
	}

	if app.analysisDir != "" {
		if len(records) == 0 {
			log.Printf("No cells generated, skipping analysis")
		} else if err := analyse(ctx, app, records); errors.Is(err, errAnalysisSkipped) {
			log.Printf("Skipping analysis : %v", err)
		} else if err != nil {
			return fmt.Errorf("analysis failed : %v", err)
		}
	}

	if app.metricsFile != "" {
		if err := cellMetrics.WriteTextfile(app.metricsFile, registry); err != nil {
			return err
		}
	}
	return nil
}

func main() {

	//Handle command line options
	app, err := parseAndValidateFlags(os.Args[1:])
	if err != nil {
		fmt.Printf("Error parsing config : %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, app, os.Stdout)
	cancel()
	if err != nil {
		log.Fatalf("cellSim failed : %v\n", err)
	}
}
