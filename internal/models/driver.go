package models

// Driver is a driver profile with season statistics.
type Driver struct {
	DriverID             int     `db:"driver_id" json:"driverId"`
	Forename             string  `db:"forename" json:"forename"`
	Surname              string  `db:"surname" json:"surname"`
	Code                 string  `db:"code" json:"code"`
	Number               int     `db:"number" json:"number,omitempty"`
	Nationality          string  `db:"nationality" json:"nationality"`
	DOB                  string  `db:"dob" json:"dob"`
	Wins                 int     `json:"wins,omitempty"`
	Podiums              int     `json:"podiums,omitempty"`
	Points               float64 `json:"points,omitempty"`
	ChampionshipPosition int     `json:"championshipPosition,omitempty"`
	AvgFinish            float64 `json:"avgFinish,omitempty"`
	DNFs                 int     `json:"dnfs,omitempty"`
	AvgGrid              float64 `json:"avgGrid,omitempty"`
	Q3Count              int     `json:"q3Count,omitempty"`
	Poles                int     `json:"poles,omitempty"`
	AvgLapTime           string  `json:"avgLapTime,omitempty"`
	FastestLaps          int     `json:"fastestLaps,omitempty"`
	Consistency          string  `json:"consistency,omitempty"`
}

// FullName returns "Forename Surname".
func (d *Driver) FullName() string {
	return d.Forename + " " + d.Surname
}

// DriverPerformance is one past result of a driver.
type DriverPerformance struct {
	Race     string `json:"race"`
	Position int    `json:"position"`
	Points   int    `json:"points"`
	DNF      bool   `json:"dnf"`
}

// FeatureContribution is one model feature's contribution to a prediction.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}
