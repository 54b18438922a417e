package models

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PitEvent is a single pit stop for one driver.
type PitEvent struct {
	DriverID   int             `db:"driver_id" json:"driverId"`
	Driver     string          `db:"driver_code" json:"driver"`
	Lap        int             `db:"lap" json:"lap" validate:"gte=1"`
	Stop       int             `db:"stop" json:"stop" validate:"gte=1"`
	Duration   decimal.Decimal `db:"duration" json:"duration"`
	TireChange string          `db:"tire_change" json:"tireChange"`
}

// Validate performs basic validation on the pit event
func (p *PitEvent) Validate() error {
	if p.Lap < 1 {
		return fmt.Errorf("%w: lap %d", ErrInvalidPitEvent, p.Lap)
	}
	if p.Stop < 1 {
		return fmt.Errorf("%w: stop %d", ErrInvalidPitEvent, p.Stop)
	}
	if p.Duration.IsNegative() {
		return fmt.Errorf("%w: negative duration %s", ErrInvalidPitEvent, p.Duration)
	}
	return nil
}

// PitEvents is the pit-stop log of a race.
type PitEvents []PitEvent

// UpTo returns the stops made on or before lap.
func (e PitEvents) UpTo(lap int) PitEvents {
	return lo.Filter(e, func(p PitEvent, _ int) bool { return p.Lap <= lap })
}

// ForDriver returns the stops of one driver code.
func (e PitEvents) ForDriver(code string) PitEvents {
	return lo.Filter(e, func(p PitEvent, _ int) bool { return p.Driver == code })
}

// Sorted returns a copy ordered by lap, then driver code.
func (e PitEvents) Sorted() PitEvents {
	out := make(PitEvents, len(e))
	copy(out, e)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lap != out[j].Lap {
			return out[i].Lap < out[j].Lap
		}
		return out[i].Driver < out[j].Driver
	})
	return out
}

// TotalDuration sums the stationary time of all stops.
func (e PitEvents) TotalDuration() decimal.Decimal {
	return lo.Reduce(e, func(acc decimal.Decimal, p PitEvent, _ int) decimal.Decimal {
		return acc.Add(p.Duration)
	}, decimal.Zero)
}

// Validate checks each event and that stop numbers count up from 1 per driver.
func (e PitEvents) Validate() error {
	next := make(map[string]int)
	for _, p := range e.Sorted() {
		if err := p.Validate(); err != nil {
			return err
		}
		expected := next[p.Driver] + 1
		if p.Stop != expected {
			return fmt.Errorf("%w: driver %s stop %d, expected %d", ErrInvalidPitEvent, p.Driver, p.Stop, expected)
		}
		next[p.Driver] = p.Stop
	}
	return nil
}
