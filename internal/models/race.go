package models

// Circuit describes the venue of a race.
type Circuit struct {
	Name     string  `db:"name" json:"name"`
	Location string  `db:"location" json:"location"`
	Country  string  `db:"country" json:"country"`
	Length   float64 `db:"length" json:"length"`
	Laps     int     `db:"laps" json:"laps"`
}

// Race represents a Grand Prix weekend's race session
type Race struct {
	RaceID   int     `db:"race_id" json:"raceId" validate:"required,gt=0"`
	Name     string  `db:"name" json:"name" validate:"required"`
	Date     string  `db:"date" json:"date" validate:"required"`
	Time     string  `db:"time" json:"time,omitempty"`
	Location string  `db:"location" json:"location"`
	Round    int     `db:"round" json:"round"`
	Circuit  Circuit `json:"circuit"`
}

// ScheduledLaps returns the circuit's planned race distance in laps, or DefaultMaxLap when unknown.
func (r *Race) ScheduledLaps() int {
	if r.Circuit.Laps > 0 {
		return r.Circuit.Laps
	}
	return DefaultMaxLap
}
