package service

import (
	"errors"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
)

// ErrNoReadings is returned when min/max is requested over an empty sequence.
var ErrNoReadings = errors.New("no hourly readings")

// MinTemp returns the reading with the lowest temperature. Ties keep the first.
func MinTemp(readings []models.HourlyReading) (models.HourlyReading, error) {
	return pick(readings, func(candidate, best float64) bool { return candidate < best })
}

// MaxTemp returns the reading with the highest temperature. Ties keep the first.
func MaxTemp(readings []models.HourlyReading) (models.HourlyReading, error) {
	return pick(readings, func(candidate, best float64) bool { return candidate > best })
}

func pick(readings []models.HourlyReading, better func(candidate, best float64) bool) (models.HourlyReading, error) {
	if len(readings) == 0 {
		return models.HourlyReading{}, ErrNoReadings
	}
	best := readings[0]
	for _, r := range readings[1:] {
		if better(r.Temp, best.Temp) {
			best = r
		}
	}
	return best, nil
}

// MinMax returns the lowest and highest readings in one pass. Ties keep the first.
func MinMax(readings []models.HourlyReading) (lo, hi models.HourlyReading, err error) {
	if len(readings) == 0 {
		return lo, hi, ErrNoReadings
	}
	lo, hi = readings[0], readings[0]
	for _, r := range readings[1:] {
		if r.Temp < lo.Temp {
			lo = r
		}
		if r.Temp > hi.Temp {
			hi = r
		}
	}
	return lo, hi, nil
}
