package risk

import (
	"time"

	"ToxicTide/pkg/logger"
)

type tradeRecord struct {
	ts  time.Time
	pnl float64
}

// TiltTracker accumulates the session-persistent behavioral counters: the
// trade history for the frequency limit, the running daily P&L for the
// loss circuit breaker, and the consecutive-loss streak that arms the
// cooldown. All timestamps come from the tick clock, never the wall
// clock, so replays reproduce identical state.
type TiltTracker struct {
	log *logger.Logger

	trades     []tradeRecord
	dailyPnL   float64
	currentDay string
	lossStreak int
}

func NewTiltTracker(log *logger.Logger) *TiltTracker {
	return &TiltTracker{log: log}
}

// RecordTrade registers a realized trade result. Crossing a UTC day
// boundary resets the daily P&L before the trade is counted.
func (t *TiltTracker) RecordTrade(ts time.Time, pnl float64) {
	t.rollover(ts)
	t.trades = append(t.trades, tradeRecord{ts: ts, pnl: pnl})
	t.dailyPnL += pnl
	if pnl < 0 {
		t.lossStreak++
	} else {
		t.lossStreak = 0
	}
	t.log.Debug("trade recorded",
		logger.Time("ts", ts),
		logger.Float64("pnl", pnl),
		logger.Float64("daily_pnl", t.dailyPnL),
		logger.Int("loss_streak", t.lossStreak),
	)
}

// Observe advances the day-rollover clock without recording a trade.
func (t *TiltTracker) Observe(ts time.Time) { t.rollover(ts) }

// TradesLastHour counts trades in the trailing hour ending at ts.
func (t *TiltTracker) TradesLastHour(ts time.Time) int {
	cutoff := ts.Add(-time.Hour)
	count := 0
	for _, tr := range t.trades {
		if !tr.ts.Before(cutoff) && !tr.ts.After(ts) {
			count++
		}
	}
	return count
}

// DailyPnLPct returns the day's realized P&L as a percentage of balance.
func (t *TiltTracker) DailyPnLPct(balance float64) float64 {
	if balance <= 0 {
		return 0
	}
	return t.dailyPnL / balance * 100
}

// DailyPnL returns the day's realized P&L in USD.
func (t *TiltTracker) DailyPnL() float64 { return t.dailyPnL }

// LossStreak returns the current run of consecutive losing trades.
func (t *TiltTracker) LossStreak() int { return t.lossStreak }

// TotalTrades returns the session trade count.
func (t *TiltTracker) TotalTrades() int { return len(t.trades) }

// Reset clears all counters. Session start only.
func (t *TiltTracker) Reset() {
	t.trades = nil
	t.dailyPnL = 0
	t.currentDay = ""
	t.lossStreak = 0
}

func (t *TiltTracker) rollover(ts time.Time) {
	day := ts.UTC().Format("2006-01-02")
	if t.currentDay != day {
		if t.currentDay != "" {
			t.log.Info("daily pnl reset",
				logger.String("day", day),
				logger.Float64("previous_daily_pnl", t.dailyPnL),
			)
		}
		t.dailyPnL = 0
		t.currentDay = day
	}
}
