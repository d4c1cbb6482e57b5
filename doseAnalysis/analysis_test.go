package doseAnalysis

import (
	"bytes"
	"cellSim/cellGenerator"
	"cellSim/testUtils"
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"testing"
)

func generate(t *testing.T, seed int64, n int) ([]cellGenerator.CellRecord, []cellGenerator.Channel) {
	t.Helper()
	config := cellGenerator.DefaultConfig()
	records, err := cellGenerator.Generate(config, testUtils.DRNG(seed), n)
	if err != nil {
		t.Fatalf("failed to generate test records : %v", err)
	}
	return records, config.Channels.Ordered()
}

func TestSplitByDose(t *testing.T) {
	records, _ := generate(t, 1, 2000)
	control, treated, err := SplitByDose(records, 0, 100)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	wantControl, wantTreated := 0, 0
	for _, r := range records {
		switch r.CytokineDose {
		case 0:
			wantControl++
		case 100:
			wantTreated++
		}
	}
	if len(control) != wantControl || len(treated) != wantTreated {
		t.Errorf("got %v/%v cells, want %v/%v", len(control), len(treated), wantControl, wantTreated)
	}
	for _, cell := range append(control, treated...) {
		if len(cell) != cellGenerator.NumExpressionChannels {
			t.Fatalf("cell has %v channels", len(cell))
		}
	}

	if _, _, err := SplitByDose(records, 10, 10); !errors.Is(err, ErrSameDose) {
		t.Errorf("want ErrSameDose got %v", err)
	}
}

func TestCompareDoses_SeparatesResponders(t *testing.T) {
	records, channels := generate(t, 2, 4000)
	creator, err := GetAccumulatorCreator("ttest")
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	acc, err := CompareDoses(records, ChannelNames(channels), 0, 100, creator)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	tValues, err := acc.Finalize()
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	for i, ch := range channels {
		switch ch.Kind {
		case cellGenerator.Responder:
			if tValues[i] <= TTestThreshold {
				t.Errorf("responder %v has t %v", ch.Name, tValues[i])
			}
		case cellGenerator.Housekeeping:
			if tValues[i] > TTestThreshold || tValues[i] < -TTestThreshold {
				t.Errorf("housekeeping %v has t %v", ch.Name, tValues[i])
			}
		}
	}

	report, err := acc.(*WelchTTest).Report()
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	buf := &bytes.Buffer{}
	if err := WriteTTestReport(buf, report); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid csv : %v", err)
	}
	if len(rows) != len(channels)+1 {
		t.Errorf("want %v rows got %v", len(channels)+1, len(rows))
	}

	if _, err := CompareDoses(records, []string{"too", "few"}, 0, 100, creator); err == nil {
		t.Errorf("expected error for wrong channel count")
	}
}

func TestFitDoseResponse(t *testing.T) {
	records, channels := generate(t, 3, 60000)
	fits, err := FitDoseResponse(context.Background(), records, channels, 3)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	if len(fits) != len(channels) {
		t.Fatalf("want %v fits got %v", len(channels), len(fits))
	}
	for i, f := range fits {
		if f.Channel.Name != channels[i].Name {
			t.Errorf("fit %v is for %v want %v", i, f.Channel.Name, channels[i].Name)
		}
		if len(f.Levels) != 4 {
			t.Errorf("%v : want 4 dose levels got %v", f.Channel.Name, len(f.Levels))
		}
		switch f.Channel.Kind {
		case cellGenerator.Responder:
			if !testUtils.FloatEqUpTo(f.Slope, f.Channel.DoseCoefficient, 0.1*f.Channel.DoseCoefficient) {
				t.Errorf("%v : slope %v want ~%v", f.Channel.Name, f.Slope, f.Channel.DoseCoefficient)
			}
			if f.Correlation < 0.5 {
				t.Errorf("%v : correlation %v too weak", f.Channel.Name, f.Correlation)
			}
		case cellGenerator.Housekeeping:
			if !testUtils.FloatEqUpTo(f.Slope, 0, 0.002) {
				t.Errorf("%v : slope %v want ~0", f.Channel.Name, f.Slope)
			}
			if !testUtils.FloatEqUpTo(f.Intercept, f.Channel.Constant, 0.05) {
				t.Errorf("%v : intercept %v want ~%v", f.Channel.Name, f.Intercept, f.Channel.Constant)
			}
		}
		total := 0
		for _, l := range f.Levels {
			total += l.Cells
		}
		if total != len(records) {
			t.Errorf("%v : levels hold %v cells want %v", f.Channel.Name, total, len(records))
		}
	}

	//worker count must not change the result
	single, err := FitDoseResponse(context.Background(), records, channels, 1)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	if !reflect.DeepEqual(single, fits) {
		t.Errorf("fits differ between 1 and 3 workers")
	}

	buf := &bytes.Buffer{}
	if err := WriteFits(buf, fits); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("fits are not valid csv : %v", err)
	}
	if want := len(channels)*4 + 1; len(rows) != want {
		t.Errorf("want %v rows got %v", want, len(rows))
	}

	plotBuf := &bytes.Buffer{}
	if err := PlotDoseResponse(fits, plotBuf); err != nil {
		t.Fatalf("unexpected plot error : %v", err)
	}
}

func TestFitDoseResponse_Errors(t *testing.T) {
	records, channels := generate(t, 4, 100)
	singleDose := make([]cellGenerator.CellRecord, 0)
	for _, r := range records {
		if r.CytokineDose == 50 {
			singleDose = append(singleDose, r)
		}
	}
	tests := []struct {
		name     string
		records  []cellGenerator.CellRecord
		channels []cellGenerator.Channel
		wantErr  error
	}{
		{name: "no records", records: nil, channels: channels, wantErr: ErrNoRecords},
		{name: "single dose", records: singleDose, channels: channels, wantErr: ErrTooFewDoses},
		{name: "wrong channel count", records: records, channels: channels[:3], wantErr: ErrChannelCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitDoseResponse(context.Background(), tt.records, tt.channels, 2)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	channels := cellGenerator.DefaultConfig().Channels.Ordered()
	records := []cellGenerator.CellRecord{
		{DonorID: "Donor_A", CytokineDose: 0, MarkerGeneResponse: 1, HousekeepingGene: 10, StableGene: -0.5},
		{DonorID: "Donor_B", CytokineDose: 10, MarkerGeneResponse: 2, HousekeepingGene: 12, StableGene: 1},
		{DonorID: "Donor_C", CytokineDose: 50, MarkerGeneResponse: 6, HousekeepingGene: 11, StableGene: 2},
	}
	summaries, err := Summarize(records, channels)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	marker := summaries[0]
	if marker.Channel != "Marker_Gene_Response" || marker.Mean != 3 || marker.Median != 2 || marker.Min != 1 || marker.Max != 6 {
		t.Errorf("unexpected marker summary %+v", marker)
	}
	//sample standard deviation of 1,2,6
	if !testUtils.FloatEqUpTo(marker.StdDev, 2.6457513110645907, 1e-9) {
		t.Errorf("marker std got %v", marker.StdDev)
	}
	stable := summaries[6]
	if stable.Negative != 1 || stable.Kind != cellGenerator.Housekeeping {
		t.Errorf("unexpected stable summary %+v", stable)
	}

	buf := &bytes.Buffer{}
	if err := WriteSummary(buf, summaries); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Stable_Gene")) {
		t.Errorf("summary misses channel names:\n%s", buf.String())
	}

	if _, err := Summarize(nil, channels); !errors.Is(err, ErrNoRecords) {
		t.Errorf("want ErrNoRecords got %v", err)
	}
}
