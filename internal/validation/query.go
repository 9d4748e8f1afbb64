package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
)

// DateLayout is the accepted format of the date query parameter.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidQuery wraps every query-parameter validation failure.
	ErrInvalidQuery = errors.New("invalid query")
	ErrInvalidDate  = errors.New("invalid date")
)

var validate = validator.New()

type currentQuery struct {
	City  string `validate:"required"`
	Units string `validate:"omitempty,alpha,max=16"`
}

type historicalQuery struct {
	City  string `validate:"required"`
	Date  string `validate:"required,datetime=2006-01-02"`
	Units string `validate:"omitempty,alpha,max=16"`
}

// ParseCurrentQuery binds and validates the /results query parameters.
func ParseCurrentQuery(values url.Values) (models.WeatherQuery, error) {
	q := currentQuery{
		City:  values.Get("city"),
		Units: strings.TrimSpace(values.Get("units")),
	}
	if err := validate.Struct(q); err != nil {
		return models.WeatherQuery{}, describe(err)
	}

	city, err := NormalizeCity(q.City)
	if err != nil {
		return models.WeatherQuery{}, fmt.Errorf("%w: city: %w", ErrInvalidQuery, err)
	}
	return models.WeatherQuery{City: city, Units: q.Units}, nil
}

// ParseHistoricalQuery binds and validates the /historical_results query
// parameters. The date is interpreted as midnight in loc.
func ParseHistoricalQuery(values url.Values, loc *time.Location) (models.WeatherQuery, error) {
	q := historicalQuery{
		City:  values.Get("city"),
		Date:  strings.TrimSpace(values.Get("date")),
		Units: strings.TrimSpace(values.Get("units")),
	}
	if err := validate.Struct(q); err != nil {
		return models.WeatherQuery{}, describe(err)
	}

	city, err := NormalizeCity(q.City)
	if err != nil {
		return models.WeatherQuery{}, fmt.Errorf("%w: city: %w", ErrInvalidQuery, err)
	}

	date, err := ParseDate(q.Date, loc)
	if err != nil {
		return models.WeatherQuery{}, err
	}
	return models.WeatherQuery{City: city, Units: q.Units, Date: &date}, nil
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc (UTC when nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w: %q", ErrInvalidQuery, ErrInvalidDate, s)
	}
	return t, nil
}

// describe turns validator field errors into a single readable error.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	dateInvalid := false
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "datetime":
			dateInvalid = true
			msgs = append(msgs, field+" must be YYYY-MM-DD")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	if dateInvalid {
		return fmt.Errorf("%w: %w: %s", ErrInvalidQuery, ErrInvalidDate, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(msgs, "; "))
}
