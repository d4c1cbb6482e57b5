package cellTable

import (
	"bytes"
	"cellSim/cellGenerator"
	"cellSim/testUtils"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{name: "empty", n: 0},
		{name: "one", n: 1},
		{name: "many", n: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := cellGenerator.Generate(cellGenerator.DefaultConfig(), testUtils.DRNG(8), tt.n)
			if err != nil {
				t.Fatalf("unexpected error : %v", err)
			}

			buf := &bytes.Buffer{}
			if err := Write(buf, records); err != nil {
				t.Fatalf("unexpected write error : %v", err)
			}

			//check raw shape: header + n rows, same column count everywhere
			rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
			if err != nil {
				t.Fatalf("written table is not valid csv : %v", err)
			}
			if got, want := len(rows), tt.n+1; got != want {
				t.Errorf("want %v rows (incl. header) got %v", want, got)
			}
			if !reflect.DeepEqual(rows[0], cellGenerator.Columns()) {
				t.Errorf("header got %v want %v", rows[0], cellGenerator.Columns())
			}

			got, err := Read(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("unexpected read error : %v", err)
			}
			if len(got) != tt.n {
				t.Fatalf("read back %v records want %v", len(got), tt.n)
			}
			for i := range records {
				if !reflect.DeepEqual(got[i], records[i]) {
					t.Errorf("record %v: got %+v want %+v", i, got[i], records[i])
				}
			}
		})
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	records, err := cellGenerator.Generate(cellGenerator.DefaultConfig(), testUtils.DRNG(12), 250)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	path := filepath.Join(t.TempDir(), "data.csv")
	//write twice, the second write must overwrite and not append
	for i := 0; i < 2; i++ {
		if err := WriteFile(path, records); err != nil {
			t.Fatalf("unexpected write error : %v", err)
		}
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected read error : %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("read back records differ from written ones")
	}
}

func TestWriteFile_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "data.csv")
	if err := WriteFile(path, nil); err == nil {
		t.Errorf("expected error writing to %v", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should not exist")
	}
}

func TestRead_UnexpectedHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing column", input: "Donor_ID,Cytokine_Dose\nDonor_A,10\n"},
		{name: "swapped columns", input: "Cytokine_Dose,Donor_ID,Marker_Gene_Response,Housekeeping_Gene,Inflammatory_Gene_1,Inflammatory_Gene_2,Housekeeping_Gene_2,Cytokine_Responder,Stable_Gene\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, ErrUnexpectedHeader) {
				t.Errorf("want ErrUnexpectedHeader got %v", err)
			}
		})
	}
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Errorf("expected error for empty input")
	}
}

func TestPreview(t *testing.T) {
	records, err := cellGenerator.Generate(cellGenerator.DefaultConfig(), testUtils.DRNG(4), 20)
	if err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	buf := &bytes.Buffer{}
	if err := Preview(buf, records, 5); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("want header and 5 rows, got %v lines:\n%s", len(lines), buf.String())
	}
	for _, col := range cellGenerator.Columns() {
		if !strings.Contains(lines[0], col) {
			t.Errorf("header misses %v", col)
		}
	}
	if !strings.Contains(lines[1], records[0].DonorID) {
		t.Errorf("first row %q does not mention donor %v", lines[1], records[0].DonorID)
	}

	//asking for more rows than available is fine
	buf.Reset()
	if err := Preview(buf, records[:2], 5); err != nil {
		t.Fatalf("unexpected error : %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Errorf("want 3 lines got %v", got)
	}
}

func TestSyncFile_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file : %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file : %v", err)
	}

	err = syncFile(f)
	if err == nil {
		t.Fatalf("expected error syncing a closed file")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name %v", err, path)
	}
}
