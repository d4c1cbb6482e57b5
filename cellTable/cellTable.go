//Package cellTable serializes generated cells as a delimited table and reads such tables back
package cellTable

import (
	"bytes"
	"cellSim/cellGenerator"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
)

var ErrUnexpectedHeader = errors.New("table header does not match the cell record columns")

//Write writes a header row followed by one row per record to w
func Write(w io.Writer, records []cellGenerator.CellRecord) error {
	if records == nil {
		records = []cellGenerator.CellRecord{}
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to marshal %v records : %v", len(records), err)
	}
	return nil
}

//WriteFile creates (or truncates) path and writes records to it
func WriteFile(path string, records []cellGenerator.CellRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file : %v", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %v : %v", f.Name(), closeErr)
		}
	}()

	if err := Write(f, records); err != nil {
		return fmt.Errorf("failed to write to %v : %v", f.Name(), err)
	}
	return syncFile(f)
}

func syncFile(f *os.File) error {
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %v : %v", f.Name(), err)
	}
	return nil
}

//checkHeader compares the first row of data with cellGenerator.Columns
func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("failed to read header : %v", err)
	}
	want := cellGenerator.Columns()
	if len(header) != len(want) {
		return fmt.Errorf("got %v columns, want %v : %w", len(header), len(want), ErrUnexpectedHeader)
	}
	for i := range want {
		if header[i] != want[i] {
			return fmt.Errorf("column %v is %q, want %q : %w", i, header[i], want[i], ErrUnexpectedHeader)
		}
	}
	return nil
}

//Read parses a table written by Write. The header must match cellGenerator.Columns exactly
func Read(r io.Reader) ([]cellGenerator.CellRecord, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table : %v", err)
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}
	records := make([]cellGenerator.CellRecord, 0)
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table : %v", err)
	}
	return records, nil
}

//ReadFile wraps Read for the file at path
func ReadFile(path string) ([]cellGenerator.CellRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %v : %v", path, err)
	}
	defer f.Close()
	return Read(f)
}

//Preview prints the first n records as an aligned, indexed table
func Preview(w io.Writer, records []cellGenerator.CellRecord, n int) error {
	if n > len(records) {
		n = len(records)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, col := range cellGenerator.Columns() {
		fmt.Fprintf(tw, "%s\t", col)
	}
	fmt.Fprintln(tw)
	for i := 0; i < n; i++ {
		r := records[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t", i, r.DonorID, strconv.FormatFloat(r.CytokineDose, 'f', -1, 64))
		for _, v := range r.Expression() {
			fmt.Fprintf(tw, "%.6f\t", v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
