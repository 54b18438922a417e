package models

// Trend is the direction a driver's prediction is moving.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// DriverRef is the short driver description embedded in predictions.
type DriverRef struct {
	Forename string `json:"forename"`
	Surname  string `json:"surname"`
	Code     string `json:"code"`
}

// ConstructorRef names a constructor.
type ConstructorRef struct {
	Name string `json:"name"`
}

// DriverPrediction is the model's finishing-position estimate for one driver in a race
type DriverPrediction struct {
	DriverID          int            `json:"driverId"`
	Driver            DriverRef      `json:"driver"`
	Constructor       ConstructorRef `json:"constructor"`
	PredictedPosition float64        `json:"predicted_position"`
	Confidence        float64        `json:"confidence" validate:"gte=0,lte=1"`
	Trend             Trend          `json:"trend"`
}

// MeetsThreshold checks if the confidence meets the given threshold
func (p *DriverPrediction) MeetsThreshold(threshold float64) bool {
	return p.Confidence >= threshold
}

// PredictionRequest asks the model for a single driver's finishing position.
type PredictionRequest struct {
	RaceID                  int                    `json:"raceId" validate:"required,gt=0"`
	DriverID                int                    `json:"driverId" validate:"required,gt=0"`
	ConstructorID           int                    `json:"constructorId" validate:"required,gt=0"`
	QualifyingPosition      *int                   `json:"qualifying_position,omitempty" validate:"omitempty,gte=1"`
	LiveLast3LapsMeanMs     *int                   `json:"live_last_3_laps_mean_ms,omitempty"`
	LiveLast3SectorDeltasMs []int                  `json:"live_last_3_sector_deltas_ms,omitempty"`
	PrecomputedFeatures     map[string]interface{} `json:"precomputed_features,omitempty"`
}

// PredictionExplanations groups the feature attributions of a prediction.
type PredictionExplanations struct {
	TopFeatures []FeatureContribution `json:"top_features"`
}

// PredictionResponse is the model output for a PredictionRequest.
type PredictionResponse struct {
	PredictedPosition  float64                `json:"predicted_position"`
	PredictedRankProbs []float64              `json:"predicted_rank_probs,omitempty"`
	Confidence         float64                `json:"confidence"`
	Explanations       PredictionExplanations `json:"explanations"`
}

// ModelStatus reports the state of each model loaded by the prediction service.
type ModelStatus map[string]interface{}
