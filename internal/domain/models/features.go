package models

import "time"

// FeatureVector holds the microstructure features derived from one tick's
// snapshot plus the rolling trade window. One instance per tick; consumed
// by the detectors and never mutated afterwards.
type FeatureVector struct {
	Timestamp time.Time `json:"ts"`

	// Order-book features.
	Mid           float64 `json:"mid"`
	Spread        float64 `json:"spread"`
	SpreadBps     float64 `json:"spread_bps"`
	TopBidSize    float64 `json:"top_bid_sz"`
	TopAskSize    float64 `json:"top_ask_sz"`
	DepthBidUSD   float64 `json:"depth_bid_usd"`
	DepthAskUSD   float64 `json:"depth_ask_usd"`
	DepthImb      float64 `json:"depth_imb"` // (-1,1); >0 means bid side deeper
	MicroMinusMid float64 `json:"micro_minus_mid"`
	ImpactBuyBps  float64 `json:"impact_buy_bps"`
	ImpactSellBps float64 `json:"impact_sell_bps"`
	MsgRate       float64 `json:"msg_rate"` // feed messages per second
	Churn         float64 `json:"churn"`    // absolute depth change vs previous tick

	// Trade-flow features over the tape window.
	Volume    float64 `json:"vol"`
	Trades    int     `json:"trades"`
	AvgTrade  float64 `json:"avg_trade"`
	MaxTrade  float64 `json:"max_trade"`
	SignedImb float64 `json:"signed_imb"` // (-1,1); >0 means buy-heavy
	Toxic     float64 `json:"toxic"`      // [0,1] |signed imbalance|, simplified VPIN
}

// WorstImpactBps returns the larger of the two side impacts.
func (f *FeatureVector) WorstImpactBps() float64 {
	if f.ImpactBuyBps > f.ImpactSellBps {
		return f.ImpactBuyBps
	}
	return f.ImpactSellBps
}
