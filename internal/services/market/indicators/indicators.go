// Package indicators provides technical analysis indicators for market
// analysis. It uses the cinar/indicator library to calculate common
// indicators such as SMA, EMA, RSI, Bollinger Bands and MACD from price
// series.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
)

// SMA calculates the Simple Moving Average for the given period.
func SMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for SMA: need %d, got %d", period, len(closes))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes))), nil
}

// EMA calculates the Exponential Moving Average for the given period.
func EMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for EMA: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes))), nil
}

// RSI calculates the Relative Strength Index for the given period.
func RSI(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes))), nil
}

// MACD calculates the MACD line and its signal line.
func MACD(closes []float64) (macdLine, signalLine []float64, err error) {
	if len(closes) < 26 {
		return nil, nil, fmt.Errorf("not enough data points for MACD: need at least 26, got %d", len(closes))
	}

	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))

	// Both channels must be drained concurrently to prevent blocking.
	done := make(chan struct{})
	go func() {
		signalLine = helper.ChanToSlice(signalChan)
		close(done)
	}()
	macdLine = helper.ChanToSlice(macdChan)
	<-done

	return macdLine, signalLine, nil
}

// BollingerBands calculates the 20-period, 2-sigma Bollinger Bands.
// It returns the upper, middle and lower band series.
func BollingerBands(closes []float64) (upper, middle, lower []float64, err error) {
	if len(closes) < 20 {
		return nil, nil, nil, fmt.Errorf("not enough data points for Bollinger Bands: need at least 20, got %d", len(closes))
	}

	bb := volatility.NewBollingerBands[float64]()
	upperChan, middleChan, lowerChan := bb.Compute(helper.SliceToChan(closes))

	done := make(chan struct{}, 2)
	go func() {
		middle = helper.ChanToSlice(middleChan)
		done <- struct{}{}
	}()
	go func() {
		lower = helper.ChanToSlice(lowerChan)
		done <- struct{}{}
	}()
	upper = helper.ChanToSlice(upperChan)
	<-done
	<-done

	return upper, middle, lower, nil
}

// AlignTail left-pads a warmup-shortened indicator series with NaN so it
// lines up index-for-index with the input series of the given length.
func AlignTail(series []float64, length int) []float64 {
	if len(series) >= length {
		return series[len(series)-length:]
	}

	aligned := make([]float64, length)
	pad := length - len(series)
	for i := 0; i < pad; i++ {
		aligned[i] = math.NaN()
	}
	copy(aligned[pad:], series)
	return aligned
}
