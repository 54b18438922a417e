package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/replay"
	"github.com/yourusername/pitwall/internal/session"
)

func TestFormatLap(t *testing.T) {
	v := session.View{
		Snapshot: replay.Snapshot{CurrentLap: 15, MaxLap: 58, Progress: 15.0 / 58.0},
		Laps: models.LapSeries{
			{Lap: 14, Times: map[string]float64{"VER": 80000}},
			{Lap: 15, Times: map[string]float64{"VER": 90500, "HAM": 90123.4}},
		},
		Pits: models.PitEvents{
			{Driver: "VER", Lap: 15, Stop: 1, Duration: decimal.RequireFromString("2.4"), TireChange: "Medium → Soft"},
			{Driver: "HAM", Lap: 18, Stop: 1, Duration: decimal.RequireFromString("2.8")},
		},
	}

	line := formatLap(v)
	assert.Equal(t, "Lap 15/58 [ 26%]  fastest HAM 1:30.123  PIT VER 2.4s (Medium → Soft)", line)
}

func TestFormatLap_NoData(t *testing.T) {
	v := session.View{Snapshot: replay.Snapshot{CurrentLap: 1, MaxLap: 58, Progress: 1.0 / 58.0}}
	assert.Equal(t, "Lap  1/58 [  2%]", formatLap(v))
}

func TestFormatLapTime(t *testing.T) {
	assert.Equal(t, "1:30.000", formatLapTime(90000))
	assert.Equal(t, "0:59.500", formatLapTime(59500))
}
