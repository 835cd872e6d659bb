package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// LastPassParser parses LastPass CSV export files:
// url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass CSV column names (header-based parsing).
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColName     = "name"
	lpColGrouping = "grouping"

	// LastPass stores secure notes with this placeholder URL.
	lpSecureNoteURL = "http://sn"
)

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data.
func (p *LastPassParser) Parse(data []byte) (*ImportResult, error) {
	rows, err := readCSV(data, strings.ToLower, lpColName)
	if err != nil {
		return nil, err
	}

	result := newResult()
	counter := 1
	for _, r := range rows.records {
		if r.err != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", r.num, r.err))
			continue
		}
		// LastPass may HTML-encode special characters
		get := func(col string) string { return DecodeHTMLEntities(r.get(col)) }

		name := get(lpColName)
		url := get(lpColURL)
		password := get(lpColPassword)

		if url == lpSecureNoteURL {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: name, Reason: ReasonSecureNote})
			continue
		}
		if IsEmptyOrWhitespace(password) {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: name, Reason: ReasonNoPassword})
			continue
		}
		if get(lpColTOTP) != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: TOTP seed not imported", r.num))
		}

		var tags []string
		if g := get(lpColGrouping); g != "" {
			// nested groups are kept as-is
			tags = append(tags, g)
		}
		result.Items = append(result.Items, newItem(name, url, get(lpColUsername), password, tags, &counter))
	}
	return result, nil
}

// csvRow is one data row with its 1-based line number in the file.
type csvRow struct {
	num    int
	values []string
	cols   map[string]int
	err    string
}

func (r csvRow) get(col string) string {
	if idx, ok := r.cols[col]; ok && idx < len(r.values) {
		return strings.TrimSpace(r.values[idx])
	}
	return ""
}

type csvTable struct {
	records []csvRow
}

// readCSV reads a header-based CSV export. Column names are passed through
// key before lookup; required names must be present in the header.
// Malformed rows are returned with err set rather than failing the file.
func readCSV(data []byte, key func(string) string, required ...string) (*csvTable, error) {
	// Strip UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[key(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	table := &csvTable{}
	rowNum := 1 // header is row 1
	for {
		rowNum++
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		row := csvRow{num: rowNum, values: values, cols: cols}
		switch {
		case err != nil:
			row.err = fmt.Sprintf("failed to parse: %v", err)
		case len(values) != len(header):
			row.err = fmt.Sprintf("column count mismatch (expected %d, got %d)", len(header), len(values))
		}
		table.records = append(table.records, row)
	}
	return table, nil
}
