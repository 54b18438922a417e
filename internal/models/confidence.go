package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const confidenceSuffix = "_confidence"

// ConfidenceRecord holds the model confidence per driver code for one lap.
type ConfidenceRecord struct {
	Lap    int                `json:"lap"`
	Scores map[string]float64 `json:"-"`
}

// MarshalJSON renders the record as {"lap":1,"VER_confidence":0.87}.
func (r ConfidenceRecord) MarshalJSON() ([]byte, error) {
	return encodeFlatRecord(r.Lap, r.Scores, confidenceSuffix)
}

// UnmarshalJSON parses the flat upstream form. Fields without the
// _confidence suffix are ignored.
func (r *ConfidenceRecord) UnmarshalJSON(data []byte) error {
	lap, values, err := decodeFlatRecord(data)
	if err != nil {
		return fmt.Errorf("confidence record: %w", err)
	}

	scores := make(map[string]float64, len(values))
	for key, v := range values {
		code, ok := strings.CutSuffix(key, confidenceSuffix)
		if !ok || code == "" {
			continue
		}
		scores[code] = v
	}

	r.Lap = lap
	r.Scores = scores
	return nil
}

// ConfidenceSeries is the per-lap confidence stream of a race.
type ConfidenceSeries []ConfidenceRecord

// UpTo returns the records whose lap number is at most lap.
func (s ConfidenceSeries) UpTo(lap int) ConfidenceSeries {
	return lo.Filter(s, func(r ConfidenceRecord, _ int) bool { return r.Lap <= lap })
}

// Sorted returns a copy ordered by lap number.
func (s ConfidenceSeries) Sorted() ConfidenceSeries {
	out := make(ConfidenceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Lap < out[j].Lap })
	return out
}

// Validate checks every score lies in [0,1].
func (s ConfidenceSeries) Validate() error {
	for _, r := range s {
		for code, v := range r.Scores {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: lap %d driver %s = %f", ErrConfidenceOutOfRange, r.Lap, code, v)
			}
		}
	}
	return nil
}
