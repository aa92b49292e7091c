package oracle

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/agbru/consort/internal/errors"
)

// DefaultUptakeFloor is the minimum import capacity granted to the target
// pollutant exchange before evaluation, so that the optimizer has room to
// probe uptake at all.
const DefaultUptakeFloor = 20.0

// Supply is one nutrient entry of a medium: an exchange reaction id and its
// upper import bound.
type Supply struct {
	Reaction string
	Upper    float64
}

// Medium is an ordered nutrient list. Order is preserved for reporting;
// ToMap is used when applying it to a Community.
type Medium []Supply

// ToMap flattens the medium into the mapping SetMedium expects. Later
// entries for the same reaction overwrite earlier ones.
func (m Medium) ToMap() map[string]float64 {
	out := make(map[string]float64, len(m))
	for _, s := range m {
		out[s.Reaction] = s.Upper
	}
	return out
}

// EnsureUptakeCapacity returns a copy of the medium in which the named
// exchange has an upper import bound of at least floor; the entry is
// appended when absent.
func (m Medium) EnsureUptakeCapacity(reactionID string, floor float64) Medium {
	out := make(Medium, len(m))
	copy(out, m)
	for i, s := range out {
		if s.Reaction == reactionID {
			if s.Upper < floor {
				out[i].Upper = floor
			}
			return out
		}
	}
	return append(out, Supply{Reaction: reactionID, Upper: floor})
}

// ReadMediumCSV parses a recommended-medium table. The file must carry a
// "reaction" column plus either "flux" or "suggested_upper_bound"; blank or
// non-numeric bounds coerce to 0.
func ReadMediumCSV(r io.Reader) (Medium, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading medium CSV header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	reactionIdx, ok := cols["reaction"]
	if !ok {
		return nil, apperrors.NewConfigError("medium CSV is missing required column %q", "reaction")
	}
	upperIdx, ok := cols["flux"]
	if !ok {
		if upperIdx, ok = cols["suggested_upper_bound"]; !ok {
			return nil, apperrors.NewConfigError("medium CSV needs a %q or %q column", "flux", "suggested_upper_bound")
		}
	}

	var medium Medium
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.WrapError(err, "reading medium CSV row")
		}
		if reactionIdx >= len(row) {
			continue
		}
		reaction := strings.TrimSpace(row[reactionIdx])
		if reaction == "" {
			continue
		}
		var upper float64
		if upperIdx < len(row) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[upperIdx]), 64); err == nil {
				upper = v
			}
		}
		medium = append(medium, Supply{Reaction: reaction, Upper: upper})
	}
	return medium, nil
}

// ReadMediumFile loads a Medium from the CSV file at path.
func ReadMediumFile(path string) (Medium, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "opening medium file")
	}
	defer f.Close()
	return ReadMediumCSV(f)
}
