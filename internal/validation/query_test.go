package validation

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestParseCurrentQuery(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantCity  string
		wantUnits string
		wantErr   bool
	}{
		{"city and units", url.Values{"city": {"Seattle"}, "units": {"imperial"}}, "Seattle", "imperial", false},
		{"units omitted", url.Values{"city": {"Seattle"}}, "Seattle", "", false},
		{"unknown units pass through", url.Values{"city": {"Oslo"}, "units": {"kelvin"}}, "Oslo", "kelvin", false},
		{"city trimmed", url.Values{"city": {"  Boston "}, "units": {"metric"}}, "Boston", "metric", false},
		{"missing city", url.Values{"units": {"metric"}}, "", "", true},
		{"blank city", url.Values{"city": {"   "}}, "", "", true},
		{"city with markup", url.Values{"city": {"<b>Paris</b>"}}, "", "", true},
		{"units not alphabetic", url.Values{"city": {"Paris"}, "units": {"me7ric"}}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseCurrentQuery(tt.values)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Fatalf("ParseCurrentQuery() error = %v, want ErrInvalidQuery", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCurrentQuery() error = %v", err)
			}
			if q.City != tt.wantCity || q.Units != tt.wantUnits {
				t.Errorf("ParseCurrentQuery() = %+v, want city %q units %q", q, tt.wantCity, tt.wantUnits)
			}
			if q.Date != nil {
				t.Errorf("current query Date = %v, want nil", q.Date)
			}
		})
	}
}

func TestParseHistoricalQuery(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	q, err := ParseHistoricalQuery(url.Values{"city": {"Seattle"}, "date": {"2023-05-01"}, "units": {"metric"}}, loc)
	if err != nil {
		t.Fatalf("ParseHistoricalQuery() error = %v", err)
	}
	if q.Date == nil {
		t.Fatal("ParseHistoricalQuery() Date = nil")
	}
	want := time.Date(2023, 5, 1, 0, 0, 0, 0, loc)
	if !q.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", q.Date, want)
	}
	if q.City != "Seattle" || q.Units != "metric" {
		t.Errorf("ParseHistoricalQuery() = %+v", q)
	}
}

func TestParseHistoricalQuery_Errors(t *testing.T) {
	tests := []struct {
		name     string
		values   url.Values
		wantDate bool
	}{
		{"missing date", url.Values{"city": {"Seattle"}}, false},
		{"missing city", url.Values{"date": {"2023-05-01"}}, false},
		{"wrong layout", url.Values{"city": {"Seattle"}, "date": {"05/01/2023"}}, true},
		{"impossible day", url.Values{"city": {"Seattle"}, "date": {"2023-02-30"}}, true},
		{"trailing time", url.Values{"city": {"Seattle"}, "date": {"2023-05-01T00:00"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHistoricalQuery(tt.values, time.UTC)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("error = %v, want ErrInvalidQuery", err)
			}
			if got := errors.Is(err, ErrInvalidDate); got != tt.wantDate {
				t.Errorf("errors.Is(err, ErrInvalidDate) = %v, want %v (err = %v)", got, tt.wantDate, err)
			}
		})
	}
}

// TestParseDate_RoundTrip verifies a date survives conversion to epoch seconds
// and back in the same location without drifting to a neighbouring day.
func TestParseDate_RoundTrip(t *testing.T) {
	zones := []string{"UTC", "America/Los_Angeles", "Asia/Tokyo", "Pacific/Kiritimati"}
	for _, z := range zones {
		loc, err := time.LoadLocation(z)
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		d, err := ParseDate("2023-05-01", loc)
		if err != nil {
			t.Fatalf("ParseDate(%s) error = %v", z, err)
		}
		back := time.Unix(d.Unix(), 0).In(loc).Format(DateLayout)
		if back != "2023-05-01" {
			t.Errorf("%s: round trip = %q, want 2023-05-01", z, back)
		}
	}
}

func TestParseDate_NilLocationUsesUTC(t *testing.T) {
	d, err := ParseDate("2023-05-01", nil)
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Unix() != 1682899200 {
		t.Errorf("ParseDate() epoch = %d, want 1682899200", d.Unix())
	}
}
