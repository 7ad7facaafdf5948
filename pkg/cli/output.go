package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat parses an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text, json or csv)", s)
	}
}

// Table is a command result. Headers and Rows drive the text and CSV
// renderings; Data, when set, is what the JSON rendering encodes.
type Table struct {
	Headers []string
	Rows    [][]string
	Data    any
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, table *Table) error
}

// TextFormatter renders tables as tab-aligned columns.
type TextFormatter struct{}

// FormatTo writes table to w.
func (f *TextFormatter) FormatTo(w io.Writer, table *Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(table.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
	}
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes table.Data, or the rows keyed by header when Data is
// nil, to w.
func (f *JSONFormatter) FormatTo(w io.Writer, table *Table) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	if table.Data != nil {
		return encoder.Encode(table.Data)
	}

	records := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := make(map[string]string, len(row))
		for i, v := range row {
			if i < len(table.Headers) {
				rec[table.Headers[i]] = v
			}
		}
		records = append(records, rec)
	}
	return encoder.Encode(records)
}

// CSVFormatter formats output as CSV.
type CSVFormatter struct{}

// FormatTo writes the header line and rows to w.
func (f *CSVFormatter) FormatTo(w io.Writer, table *Table) error {
	csvWriter := csv.NewWriter(w)

	if len(table.Headers) > 0 {
		if err := csvWriter.Write(table.Headers); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(table.Rows); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
