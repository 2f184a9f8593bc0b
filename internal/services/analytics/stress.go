package analytics

import "ToxicTide/internal/domain/models"

// ComputeStress aggregates the detector reports into the composite market
// stress index. Pure function, no owned state: the level is the maximum
// severity across inputs and can never be milder than any of them.
// Smoothing and cooldown policy live in the risk layer, not here.
func ComputeStress(oad, vad models.AnomalyReport) models.StressIndex {
	level := models.MaxSeverity(oad.Level, vad.Level)

	var contributors []string
	if oad.Level != models.SeverityOK {
		contributors = append(contributors, oad.Subtypes...)
	}
	if vad.Level != models.SeverityOK {
		contributors = append(contributors, vad.Subtypes...)
	}

	toxic := vad.Triggers["toxic"]
	return models.StressIndex{
		Timestamp:    oad.Timestamp,
		Level:        level,
		Score:        0.5*oad.Score + 0.3*vad.Score + 5*toxic,
		Contributors: contributors,
		Insufficient: oad.Insufficient || vad.Insufficient,
	}
}
