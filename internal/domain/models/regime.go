package models

import "time"

// TrendRegime is the price-trend axis of the market regime.
type TrendRegime string

const (
	TrendUp    TrendRegime = "TREND_UP"
	TrendDown  TrendRegime = "TREND_DOWN"
	TrendRange TrendRegime = "RANGE"
)

// VolRegime is the volatility axis.
type VolRegime string

const (
	VolCalm     VolRegime = "CALM"
	VolElevated VolRegime = "ELEVATED"
	VolExtreme  VolRegime = "EXTREME"
)

// FlowRegime is the net trade-flow axis.
type FlowRegime string

const (
	FlowBalanced  FlowRegime = "BALANCED"
	FlowBuyHeavy  FlowRegime = "BUY_HEAVY"
	FlowSellHeavy FlowRegime = "SELL_HEAVY"
)

// RegimeState is the discrete market regime for one tick: three independent
// axes composed directly, recomputed every tick with no smoothing.
type RegimeState struct {
	Timestamp  time.Time   `json:"ts"`
	Trend      TrendRegime `json:"trend"`
	Vol        VolRegime   `json:"vol"`
	Flow       FlowRegime  `json:"flow"`
	Confidence float64     `json:"confidence"` // [0,1], grows with sample count
}

// Calmest reports whether all three axes sit in their calmest band.
func (r RegimeState) Calmest() bool {
	return r.Trend == TrendRange && r.Vol == VolCalm && r.Flow == FlowBalanced
}

// String renders the regime as its three axes, e.g. "TREND_UP/CALM/BALANCED".
func (r RegimeState) String() string {
	return string(r.Trend) + "/" + string(r.Vol) + "/" + string(r.Flow)
}
