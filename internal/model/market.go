package model

import "time"

// PriceBar represents a single OHLC observation for one trading period.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Base column names created from price bars. They match the headers of the
// exported CSV so that an export can be loaded back as a series.
const (
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

// Derived column names written by the indicator engine.
const (
	ColMovingAverage = "Moving_Average"
	ColCloseSTD      = "Close_STD"
	ColBollingerMA   = "MA"
	ColUpperBand     = "Upper_Band"
	ColLowerBand     = "Lower_Band"
	ColRSI           = "RSI"
	ColMACD          = "MACD"
	ColSignalLine    = "Signal_Line"
)

// BaseColumns lists the bar fields in export order.
var BaseColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}
