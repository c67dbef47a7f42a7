package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// Composite efficiency weights. Fixed by the reporting contract; they sum
// to 1 so the composite stays inside [0, 1].
const (
	weightEquipment   = 0.60
	weightPersonnel   = 0.25
	weightEnvironment = 0.15
)

// Comfort bands for environment readings. A reading inside its band counts
// toward the score; outside it counts against.
const (
	tempMin     = 18.0
	tempMax     = 28.0
	humidityMin = 40.0
	humidityMax = 70.0
	pm25Max     = 75.0
)

// subScoreFunc derives a [0, 1] sub-score from one source type's records.
type subScoreFunc func([]model.Record) (float64, error)

// subScores dispatches the per-source sub-score formulas. The weights are a
// fixed contract; the formulas behind them are swappable here.
var subScores = map[model.SourceType]subScoreFunc{
	model.SourcePersonnel:   personnelScore,
	model.SourceEnvironment: environmentScore,
}

// personnelScore rates operator effectiveness over the window: the share of
// operations with a normal result, weighted by mean skill level.
func personnelScore(records []model.Record) (float64, error) {
	if len(records) == 0 {
		return 0, eris.Wrap(model.ErrInsufficientData, "no personnel records")
	}

	var normal int
	var skillSum float64
	for _, r := range records {
		if result, ok := r.Text("result"); ok && result == "normal" {
			normal++
		}
		skill, _ := r.Number("skill_level")
		skillSum += skill
	}

	n := float64(len(records))
	return clamp01(float64(normal) / n * (skillSum / n)), nil
}

// environmentScore rates shop-floor conditions over the window: the mean
// per-record fraction of readings inside their comfort bands.
func environmentScore(records []model.Record) (float64, error) {
	if len(records) == 0 {
		return 0, eris.Wrap(model.ErrInsufficientData, "no environment records")
	}

	var sum float64
	for _, r := range records {
		inBand := 0
		if v, ok := r.Number("temperature"); ok && v >= tempMin && v <= tempMax {
			inBand++
		}
		if v, ok := r.Number("humidity"); ok && v >= humidityMin && v <= humidityMax {
			inBand++
		}
		if v, ok := r.Number("pm25"); ok && v <= pm25Max {
			inBand++
		}
		sum += float64(inBand) / 3
	}

	return clamp01(sum / float64(len(records))), nil
}
