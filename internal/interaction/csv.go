package interaction

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/agbru/consort/internal/errors"
)

// Column names recognized by ReadCSV. The two species columns are required;
// delta_index is recomputed when absent.
const (
	colFunctional      = "functional_species"
	colComplement      = "complement_species"
	colCompetition     = "competition_index"
	colComplementarity = "complementarity_index"
	colDelta           = "delta_index"
)

// ReadCSV parses pair interaction records from CSV data with a header row.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading interaction CSV header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colFunctional, colComplement} {
		if _, ok := cols[required]; !ok {
			return nil, apperrors.NewConfigError("interaction CSV is missing required column %q", required)
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.WrapError(err, "reading interaction CSV row")
		}
		records = append(records, Record{
			SpeciesA:        cell(row, cols, colFunctional),
			SpeciesB:        cell(row, cols, colComplement),
			Competition:     numeric(cell(row, cols, colCompetition)),
			Complementarity: numeric(cell(row, cols, colComplementarity)),
			Delta:           numeric(cell(row, cols, colDelta)),
		})
	}
	return records, nil
}

// ReadFile loads an interaction Index from the CSV file at path.
func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "opening interaction file")
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return NewIndex(records), nil
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// numeric parses a metric cell, mapping blank or unparsable values to the
// NaN "absent" sentinel.
func numeric(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
