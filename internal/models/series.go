package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultMaxLap is the race length assumed before any lap data is available.
const DefaultMaxLap = 58

const lapKey = "lap"

// decodeFlatRecord splits a flat per-lap JSON object into its lap number and
// the remaining numeric fields. Non-numeric fields are ignored.
func decodeFlatRecord(data []byte) (int, map[string]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return 0, nil, err
	}

	lapValue, ok := raw[lapKey].(json.Number)
	if !ok {
		return 0, nil, fmt.Errorf("missing or non-numeric %q field", lapKey)
	}
	lap, err := lapValue.Int64()
	if err != nil {
		return 0, nil, fmt.Errorf("invalid lap number %q: %w", lapValue, err)
	}

	values := make(map[string]float64, len(raw))
	for key, v := range raw {
		if key == lapKey {
			continue
		}
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return 0, nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		values[key] = f
	}

	return int(lap), values, nil
}

func encodeFlatRecord(lap int, values map[string]float64, suffix string) ([]byte, error) {
	out := make(map[string]interface{}, len(values)+1)
	out[lapKey] = lap
	for key, v := range values {
		out[key+suffix] = v
	}
	return json.Marshal(out)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
