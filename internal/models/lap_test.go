package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLapSeries(laps int) LapSeries {
	series := make(LapSeries, laps)
	for i := range series {
		series[i] = LapRecord{Lap: i + 1, Times: map[string]float64{"VER": 90000 + float64(i), "HAM": 91000}}
	}
	return series
}

func TestLapSeriesMaxLap(t *testing.T) {
	tests := []struct {
		name   string
		series LapSeries
		want   int
	}{
		{name: "empty series uses fallback", series: nil, want: DefaultMaxLap},
		{name: "full race", series: buildLapSeries(78), want: 78},
		{name: "unordered", series: LapSeries{{Lap: 3}, {Lap: 7}, {Lap: 1}}, want: 7},
		{name: "only lap zero", series: LapSeries{{Lap: 0}}, want: DefaultMaxLap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.series.MaxLap())
		})
	}
}

func TestLapSeriesUpTo(t *testing.T) {
	series := buildLapSeries(10)

	visible := series.UpTo(4)
	require.Len(t, visible, 4)
	assert.Equal(t, 4, visible[len(visible)-1].Lap)
	assert.Len(t, series, 10, "receiver must not be mutated")

	assert.Empty(t, series.UpTo(0))
	assert.Len(t, series.UpTo(99), 10)
}

func TestLapSeriesValidate(t *testing.T) {
	assert.NoError(t, buildLapSeries(5).Validate())
	assert.NoError(t, LapSeries{}.Validate())

	gap := LapSeries{{Lap: 1}, {Lap: 2}, {Lap: 4}}
	assert.ErrorIs(t, gap.Validate(), ErrNonContiguousLaps)

	unordered := LapSeries{{Lap: 2}, {Lap: 1}}
	assert.ErrorIs(t, unordered.Validate(), ErrNonContiguousLaps)
	assert.NoError(t, unordered.Sorted().Validate())
}

func TestLapSeriesDrivers(t *testing.T) {
	series := LapSeries{
		{Lap: 1, Times: map[string]float64{"VER": 1, "HAM": 2}},
		{Lap: 2, Times: map[string]float64{"LEC": 3}},
	}
	assert.Equal(t, []string{"HAM", "LEC", "VER"}, series.Drivers())
}

func TestLapRecordJSON(t *testing.T) {
	var series LapSeries
	payload := `[{"lap":1,"VER":90123.5,"HAM":91000},{"lap":2,"VER":90050,"note":"vsc"}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &series))

	require.Len(t, series, 2)
	assert.Equal(t, 1, series[0].Lap)
	assert.InDelta(t, 90123.5, series[0].Times["VER"], 0.001)
	assert.Len(t, series[1].Times, 1, "non-numeric fields are ignored")

	out, err := json.Marshal(series[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"lap":1,"VER":90123.5,"HAM":91000}`, string(out))
}

func TestLapRecordJSONMissingLap(t *testing.T) {
	var record LapRecord
	err := json.Unmarshal([]byte(`{"VER":90000}`), &record)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"lap":"one"}`), &record)
	assert.Error(t, err)
}
