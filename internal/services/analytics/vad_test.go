package analytics

import (
	"testing"
	"time"

	"ToxicTide/internal/domain/models"
	"ToxicTide/pkg/logger"
)

func vadConfig() VADConfig {
	return VADConfig{
		WindowSize:  240,
		MinSamples:  20,
		ZWarn:       4,
		ZDanger:     6,
		ToxicWarn:   0.6,
		ToxicDanger: 0.75,
	}
}

func volumeFeatures(t time.Time, vol float64, toxic float64) models.FeatureVector {
	return models.FeatureVector{
		Timestamp: t,
		Volume:    vol,
		Trades:    10,
		MaxTrade:  vol / 10,
		Toxic:     toxic,
	}
}

func TestVADInsufficientData(t *testing.T) {
	d := NewVolumeDetector(vadConfig(), logger.Nop())
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report := d.Detect(volumeFeatures(ts, 100, 0))
	if !report.Insufficient || report.Level != models.SeverityOK {
		t.Fatalf("got level=%v insufficient=%v, want OK/true", report.Level, report.Insufficient)
	}
}

func TestVADToxicFlowThresholds(t *testing.T) {
	d := NewVolumeDetector(vadConfig(), logger.Nop())
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		d.Detect(volumeFeatures(ts.Add(time.Duration(i)*time.Second), 100+float64(i%3), 0.1))
	}

	warn := d.Detect(volumeFeatures(ts.Add(26*time.Second), 100, 0.65))
	if warn.Level != models.SeverityWarn {
		t.Fatalf("toxic 0.65 level = %v, want WARN", warn.Level)
	}
	if !hasSubtype(warn.Subtypes, models.AnomalyToxicFlow) {
		t.Errorf("subtypes %v missing toxic flow", warn.Subtypes)
	}

	danger := d.Detect(volumeFeatures(ts.Add(27*time.Second), 100, 0.8))
	if danger.Level != models.SeverityDanger {
		t.Fatalf("toxic 0.8 level = %v, want DANGER", danger.Level)
	}
}

func TestVADVolumeBurst(t *testing.T) {
	d := NewVolumeDetector(vadConfig(), logger.Nop())
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		d.Detect(volumeFeatures(ts.Add(time.Duration(i)*time.Second), 100+float64(i%3), 0.1))
	}
	report := d.Detect(volumeFeatures(ts.Add(31*time.Second), 1e6, 0.1))
	if report.Level == models.SeverityOK {
		t.Fatalf("burst level = OK, triggers %v", report.Triggers)
	}
	if !hasSubtype(report.Subtypes, models.AnomalyVolumeBurst) {
		t.Errorf("subtypes %v missing volume burst", report.Subtypes)
	}
	if !hasSubtype(report.Subtypes, models.AnomalyWhaleTrade) {
		t.Errorf("subtypes %v missing whale trade", report.Subtypes)
	}
}

func TestStressMonotonicAggregation(t *testing.T) {
	cases := []struct {
		oad, vad models.Severity
		want     models.Severity
	}{
		{models.SeverityOK, models.SeverityOK, models.SeverityOK},
		{models.SeverityWarn, models.SeverityOK, models.SeverityWarn},
		{models.SeverityOK, models.SeverityDanger, models.SeverityDanger},
		{models.SeverityDanger, models.SeverityWarn, models.SeverityDanger},
	}
	for _, tc := range cases {
		stress := ComputeStress(
			models.AnomalyReport{Level: tc.oad, Triggers: map[string]float64{}},
			models.AnomalyReport{Level: tc.vad, Triggers: map[string]float64{}},
		)
		if stress.Level != tc.want {
			t.Errorf("oad=%v vad=%v: stress = %v, want %v", tc.oad, tc.vad, stress.Level, tc.want)
		}
		if stress.Level.Rank() < tc.oad.Rank() || stress.Level.Rank() < tc.vad.Rank() {
			t.Errorf("stress %v milder than an input (%v, %v)", stress.Level, tc.oad, tc.vad)
		}
	}
}

func TestStressCollectsContributors(t *testing.T) {
	stress := ComputeStress(
		models.AnomalyReport{
			Level:    models.SeverityDanger,
			Subtypes: []string{models.AnomalySpreadBlowout},
			Triggers: map[string]float64{},
		},
		models.AnomalyReport{
			Level:    models.SeverityWarn,
			Subtypes: []string{models.AnomalyToxicFlow},
			Triggers: map[string]float64{"toxic": 0.65},
		},
	)
	if len(stress.Contributors) != 2 {
		t.Fatalf("contributors = %v, want both subtypes", stress.Contributors)
	}
}
