package services

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"geodash/internal/config"

	"github.com/xuri/excelize/v2"
)

// openWorkbook opens an xlsx workbook from a local path or an http(s) URL.
func openWorkbook(location string) (*excelize.File, error) {
	if config.IsRemote(location) {
		resp, err := http.Get(location)
		if err != nil {
			return nil, fmt.Errorf("error downloading workbook: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("error downloading workbook: status %s", resp.Status)
		}
		return excelize.OpenReader(resp.Body)
	}
	return excelize.OpenFile(location)
}

// readSheetRows reads the first sheet of a workbook and returns the
// whitespace-trimmed header plus the data rows.
func readSheetRows(f *excelize.File) ([]string, [][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("error reading sheet %q: %v", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}
	return header, rows[1:], nil
}

// columnIndex returns the position of a named column, or -1.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// cellAt returns the trimmed cell value, tolerating short rows.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber parses a numeric cell, accepting a comma decimal separator.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
