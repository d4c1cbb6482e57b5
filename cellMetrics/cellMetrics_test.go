package cellMetrics

import (
	"cellSim/cellGenerator"
	"cellSim/testUtils"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_CountsGeneratedRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}

	g, err := cellGenerator.NewGenerator(cellGenerator.DefaultConfig(), testUtils.DRNG(5), c)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	records, err := g.Generate(2000)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}

	wantRecords := make(map[string]map[string]int)
	wantClamps := 0
	for _, r := range records {
		if wantRecords[r.DonorID] == nil {
			wantRecords[r.DonorID] = make(map[string]int)
		}
		wantRecords[r.DonorID][doseLabel(r.CytokineDose)]++
		if r.MarkerGeneResponse == 0 {
			wantClamps++
		}
	}

	for donor, byDose := range wantRecords {
		for dose, want := range byDose {
			if got := testutil.ToFloat64(c.records.WithLabelValues(donor, dose)); got != float64(want) {
				t.Errorf("%v/%v : got %v records want %v", donor, dose, got, want)
			}
		}
	}
	if got := testutil.ToFloat64(c.clamps.WithLabelValues("Marker_Gene_Response")); got != float64(wantClamps) {
		t.Errorf("got %v clamps want %v", got, wantClamps)
	}
}

func TestCollector_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Errorf("expected error registering the same metrics twice")
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	c.ObserveRecord(cellGenerator.CellRecord{DonorID: "Donor_A", CytokineDose: 50})
	c.ObserveDuration(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "cellsim.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file : %v", err)
	}
	for _, want := range []string{
		`cellsim_records_generated_total{donor="Donor_A",dose="50"} 1`,
		`cellsim_generation_duration_seconds 1.5`,
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("metrics file misses %q:\n%s", want, content)
		}
	}
}
