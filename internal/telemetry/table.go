package telemetry

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Table is raw tabular telemetry before normalization.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Format names an ingestion encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatFromName picks the encoding from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported telemetry file %q: expected .csv or .json", name)
	}
}

// Read decodes r using the given format.
func Read(r io.Reader, format Format) (Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	default:
		return Table{}, fmt.Errorf("unsupported telemetry format %q", format)
	}
}

// ReadFile loads a CSV or JSON telemetry file.
func ReadFile(path string) (Table, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return Read(f, format)
}

// ReadCSV reads a CSV document whose first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w", err)
	}

	table := Table{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv: %w", err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// ReadJSON reads an array of flat objects. Columns are the union of all keys,
// appended as they are first seen; non-string scalars are rendered as text.
func ReadJSON(r io.Reader) (Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return Table{}, fmt.Errorf("read json: %w", err)
	}

	index := map[string]int{}
	var table Table
	for _, obj := range objects {
		for _, key := range orderedKeys(obj) {
			if _, ok := index[key]; !ok {
				index[key] = len(table.Columns)
				table.Columns = append(table.Columns, key)
			}
		}
	}
	for _, obj := range objects {
		row := make([]string, len(table.Columns))
		for key, val := range obj {
			row[index[key]] = scalarString(val)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// orderedKeys returns map keys sorted so column order is deterministic.
// encoding/json does not preserve object key order.
func orderedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(bytes.TrimSpace(b))
	}
}
