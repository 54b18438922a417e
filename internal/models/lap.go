package models

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// LapRecord holds one lap time per tracked driver, in milliseconds, keyed by driver code.
type LapRecord struct {
	Lap   int                `json:"lap"`
	Times map[string]float64 `json:"-"`
}

// MarshalJSON renders the record in the flat upstream form {"lap":1,"VER":90123.4}.
func (r LapRecord) MarshalJSON() ([]byte, error) {
	return encodeFlatRecord(r.Lap, r.Times, "")
}

// UnmarshalJSON parses the flat upstream form.
func (r *LapRecord) UnmarshalJSON(data []byte) error {
	lap, values, err := decodeFlatRecord(data)
	if err != nil {
		return fmt.Errorf("lap record: %w", err)
	}
	r.Lap = lap
	r.Times = values
	return nil
}

// LapSeries is the ordered lap-time history of a race.
type LapSeries []LapRecord

// MaxLap returns the highest lap number present, or DefaultMaxLap for an empty series.
func (s LapSeries) MaxLap() int {
	if len(s) == 0 {
		return DefaultMaxLap
	}
	maxLap := lo.Max(lo.Map(s, func(r LapRecord, _ int) int { return r.Lap }))
	if maxLap < 1 {
		return DefaultMaxLap
	}
	return maxLap
}

// UpTo returns the records whose lap number is at most lap.
func (s LapSeries) UpTo(lap int) LapSeries {
	return lo.Filter(s, func(r LapRecord, _ int) bool { return r.Lap <= lap })
}

// Drivers returns the sorted set of driver codes appearing anywhere in the series.
func (s LapSeries) Drivers() []string {
	seen := make(map[string]struct{})
	for _, r := range s {
		for code := range r.Times {
			seen[code] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Sorted returns a copy ordered by lap number.
func (s LapSeries) Sorted() LapSeries {
	out := make(LapSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Lap < out[j].Lap })
	return out
}

// Validate checks the series is ordered and contiguous starting at lap 1.
func (s LapSeries) Validate() error {
	for i, r := range s {
		if r.Lap != i+1 {
			return fmt.Errorf("%w: expected lap %d, got %d", ErrNonContiguousLaps, i+1, r.Lap)
		}
	}
	return nil
}
