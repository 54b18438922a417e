package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTelemetryDriverID is the driver reported when a telemetry request names none.
const DefaultTelemetryDriverID = 1

// naiveTimestamp is the zone-less ISO form the prediction service emits; it is read as UTC.
const naiveTimestamp = "2006-01-02T15:04:05.999999999"

// TelemetryPoint is one car position and speed sample.
type TelemetryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	DriverID  int       `json:"driverId"`
	Lap       int       `json:"lap"`
	Sector    int       `json:"sector"`
	SpeedKmh  float64   `json:"speed_kmh"`
	TrackPosX float64   `json:"track_pos_x"`
	TrackPosY float64   `json:"track_pos_y"`
	LapTimeMs float64   `json:"lap_time_ms"`
}

// UnmarshalJSON accepts RFC 3339 timestamps and zone-less ones.
func (p *TelemetryPoint) UnmarshalJSON(data []byte) error {
	type plain TelemetryPoint
	var raw struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("telemetry point: %w", err)
	}
	*p = TelemetryPoint(raw.plain)
	if raw.Timestamp == "" {
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		ts, err = time.ParseInLocation(naiveTimestamp, raw.Timestamp, time.UTC)
		if err != nil {
			return fmt.Errorf("telemetry point: invalid timestamp %q", raw.Timestamp)
		}
	}
	p.Timestamp = ts
	return nil
}
