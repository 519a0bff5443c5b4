package market

import (
	"github.com/markcheno/go-talib"

	"papertrade/internal/types"
)

// IndicatorSet carries the indicator columns computed for a candle series.
// Leading entries are zero until each indicator's warm-up period has passed.
type IndicatorSet struct {
	SMA20 []float64 `json:"sma20"`
	EMA12 []float64 `json:"ema12"`
	RSI14 []float64 `json:"rsi14"`
}

// ComputeIndicators derives SMA/EMA/RSI columns from candle closes. Series
// shorter than the warm-up period come back as zero-filled columns of the
// same length.
func ComputeIndicators(candles []types.Candle) IndicatorSet {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	set := IndicatorSet{
		SMA20: make([]float64, len(closes)),
		EMA12: make([]float64, len(closes)),
		RSI14: make([]float64, len(closes)),
	}
	if len(closes) > 20 {
		set.SMA20 = talib.Sma(closes, 20)
	}
	if len(closes) > 12 {
		set.EMA12 = talib.Ema(closes, 12)
	}
	if len(closes) > 14 {
		set.RSI14 = talib.Rsi(closes, 14)
	}
	return set
}
