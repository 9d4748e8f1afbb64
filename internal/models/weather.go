package models

import "time"

// Units systems understood by the provider.
const (
	UnitsImperial = "imperial"
	UnitsMetric   = "metric"
	UnitsStandard = "standard"
)

// UnitsLetter returns the display letter for a units system.
// Anything other than imperial or metric is labelled Kelvin.
func UnitsLetter(units string) string {
	switch units {
	case UnitsImperial:
		return "F"
	case UnitsMetric:
		return "C"
	default:
		return "K"
	}
}

// WeatherQuery is the user's request. Date is set only for historical lookups.
type WeatherQuery struct {
	City  string
	Units string
	Date  *time.Time
}

// Coordinates is a resolved geographic position.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// IsZero reports whether c is the (0,0) sentinel.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// HourlyReading is one entry of the historical "hourly" sequence.
type HourlyReading struct {
	Dt   int64   `json:"dt"`
	Temp float64 `json:"temp"`
}

// CurrentWeather is the subset of the current-conditions response the pages use.
type CurrentWeather struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Temperature float64 `json:"temp"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Sunrise     int64   `json:"sunrise"`
	Sunset      int64   `json:"sunset"`
}

// HistoricalWeather is the subset of the timemachine response the pages use.
type HistoricalWeather struct {
	Latitude    float64         `json:"lat"`
	Longitude   float64         `json:"lon"`
	Timezone    string          `json:"timezone"`
	Description string          `json:"description"`
	Temperature float64         `json:"temp"`
	Hourly      []HourlyReading `json:"hourly"`
}
