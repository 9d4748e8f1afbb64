package views

import "time"

// HomePage bounds the historical date picker.
type HomePage struct {
	MinDate time.Time
	MaxDate time.Time
}

// ResultsPage is the current-conditions view.
type ResultsPage struct {
	Date        time.Time
	City        string
	Description string
	Temperature float64
	Humidity    int
	WindSpeed   float64
	Sunrise     time.Time
	Sunset      time.Time
	UnitsLetter string
}

// HistoricalPage is the view for a single past day at a location.
type HistoricalPage struct {
	City        string
	Date        time.Time
	Latitude    float64
	Longitude   float64
	Units       string
	UnitsLetter string
	Description string
	Temperature float64
	MinTemp     float64
	MaxTemp     float64
	// Approximate is set when the location could not be geocoded and (0,0) was used.
	Approximate bool
}

// ErrorPage is shown when a lookup cannot be completed.
type ErrorPage struct {
	Status        int
	Title         string
	Message       string
	CorrelationID string
}
