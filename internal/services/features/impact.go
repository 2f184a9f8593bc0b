package features

import "ToxicTide/internal/domain/models"

// ImpactUnfillable is reported when the visible book cannot absorb the
// requested notional at any price.
const ImpactUnfillable = 9999.9

// EstimateImpactBps walks book levels and returns the basis-point deviation
// of the volume-weighted fill price from mid for a marketable order of
// qtyUSD. For a buy pass the asks, for a sell pass the bids, best level
// first. Returns ImpactUnfillable when the levels cannot absorb qtyUSD.
func EstimateImpactBps(levels []models.BookLevel, side models.Side, qtyUSD, mid float64) float64 {
	if qtyUSD <= 0 {
		return 0
	}
	if len(levels) == 0 || mid <= 0 {
		return ImpactUnfillable
	}

	remaining := qtyUSD
	costUSD := 0.0
	baseQty := 0.0
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		levelUSD := lvl.Price * lvl.Size
		consumed := levelUSD
		if remaining < levelUSD {
			consumed = remaining
		}
		costUSD += consumed
		baseQty += consumed / lvl.Price
		remaining -= consumed
	}
	if remaining > 1e-9 || baseQty <= 0 {
		return ImpactUnfillable
	}

	avgPrice := costUSD / baseQty
	var bps float64
	if side == models.SideBuy {
		bps = (avgPrice - mid) / mid * 10000
	} else {
		bps = (mid - avgPrice) / mid * 10000
	}
	if bps < 0 {
		bps = 0
	}
	return bps
}

// DepthWithinImpactBps answers the inverse question: the largest notional
// (USD) executable against levels while keeping estimated impact at or
// below maxImpactBps. Bisection over [0, total visible depth] to a 1 USD
// tolerance.
func DepthWithinImpactBps(levels []models.BookLevel, side models.Side, maxImpactBps, mid float64) float64 {
	if maxImpactBps <= 0 || len(levels) == 0 {
		return 0
	}
	var total float64
	for _, lvl := range levels {
		total += lvl.NotionalUSD()
	}
	low, high := 0.0, total
	for high-low > 1.0 {
		probe := (low + high) / 2
		if EstimateImpactBps(levels, side, probe, mid) <= maxImpactBps {
			low = probe
		} else {
			high = probe
		}
	}
	return low
}

// SlippageBps measures realized adverse slippage of a fill against the
// reference price, positive when the fill was worse than reference.
func SlippageBps(fillPrice, referencePrice float64, side models.Side) float64 {
	if referencePrice <= 0 {
		return 0
	}
	if side == models.SideBuy {
		return (fillPrice - referencePrice) / referencePrice * 10000
	}
	return (referencePrice - fillPrice) / referencePrice * 10000
}
