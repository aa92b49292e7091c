package fitness

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/agbru/consort/internal/errors"
)

// Column names recognized by ReadCSV. species and S_microbe are required;
// the rest are optional.
const (
	colSpecies     = "species"
	colSMicrobe    = "S_microbe"
	colSource      = "source"
	colKcatMax     = "kcat_max"
	colEnvironment = "environment_match"
)

// ReadCSV parses species fitness records from CSV data with a header row.
// Missing required columns are a configuration error. Non-numeric S_microbe
// values coerce to 0; non-numeric optional values are treated as absent.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading fitness CSV header")
	}
	cols := indexColumns(header)
	for _, required := range []string{colSpecies, colSMicrobe} {
		if _, ok := cols[required]; !ok {
			return nil, apperrors.NewConfigError("fitness CSV is missing required column %q", required)
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.WrapError(err, "reading fitness CSV row")
		}
		rec := Record{
			Species:          field(row, cols, colSpecies),
			SMicrobe:         parseFloatOrZero(field(row, cols, colSMicrobe)),
			Source:           field(row, cols, colSource),
			KcatMax:          parseFloatOrNaN(field(row, cols, colKcatMax)),
			EnvironmentMatch: parseFloatOrNaN(field(row, cols, colEnvironment)),
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile loads a fitness Table from the CSV file at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "opening fitness file")
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return NewTable(records)
}

// indexColumns maps trimmed header names to their positions.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

// field returns the named column of row, or "" when the column is absent.
func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseFloatOrZero coerces unparsable or missing numerics to 0, matching the
// "missing fitness counts as zero" data-quality rule.
func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// parseFloatOrNaN coerces unparsable or missing numerics to NaN, the sentinel
// for "skip from aggregates".
func parseFloatOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
