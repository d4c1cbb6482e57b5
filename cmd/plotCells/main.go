//Package main renders the dose response plot of a previously generated cell table
package main

import (
	"cellSim/cellGenerator"
	"cellSim/cellTable"
	"cellSim/doseAnalysis"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
)

//plotTable reads the table at inPath and stores the dose response plot of all channels at outPath
func plotTable(ctx context.Context, inPath, outPath string) error {
	records, err := cellTable.ReadFile(inPath)
	if err != nil {
		return err
	}

	fits, err := doseAnalysis.FitDoseResponse(ctx, records, cellGenerator.DefaultConfig().Channels.Ordered(), runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to fit dose response : %v", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %v : %v", outPath, err)
	}
	defer func() {
		if err := outFile.Close(); err != nil {
			log.Printf("Failed to close %v : %v", outFile.Name(), err)
		}
	}()

	if err := doseAnalysis.PlotDoseResponse(fits, outFile); err != nil {
		return fmt.Errorf("failed to create plot : %v", err)
	}
	return outFile.Sync()
}

func main() {

	in := flag.String("in", "", "Path to a cell table written by cellSim")
	out := flag.String("out", "dose-response.png", "Path of the png file")

	flag.Parse()

	if *in == "" {
		fmt.Printf("Please set \"in\" parameter!\n")
		flag.PrintDefaults()
		return
	}

	if err := plotTable(context.Background(), *in, *out); err != nil {
		log.Fatalf("Failed to plot %v : %v\n", *in, err)
	}
}
