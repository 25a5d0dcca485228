package covid

import (
	"time"
)

// DateLayout is the calendar date format used by the upstream API and the form.
const DateLayout = "2006-01-02"

// Selector identifies which upstream dataset to fetch.
type Selector struct {
	AreaType string `json:"areaType"`
	AreaName string `json:"areaName"`
	Metric   string `json:"metric"`
}

// Key returns a compact string form used in logs.
func (s Selector) Key() string {
	return s.AreaType + ":" + s.AreaName + ":" + s.Metric
}

// Record is a single daily row returned by a provider.
// Value is nil when the upstream reports no figure for that day.
type Record struct {
	Date     time.Time `json:"date"` // midnight UTC
	AreaName string    `json:"areaName"`
	AreaCode string    `json:"areaCode"`
	Value    *float64  `json:"value"`
}

// Series is a list of records ordered strictly ascending by date.
type Series []Record

// First returns the earliest date. The series must not be empty.
func (s Series) First() time.Time {
	return s[0].Date
}

// Last returns the latest date. The series must not be empty.
func (s Series) Last() time.Time {
	return s[len(s)-1].Date
}

// Window is the effective date range after clamping to the series bounds.
type Window struct {
	From time.Time
	To   time.Time
}

// FromString formats the lower bound as YYYY-MM-DD.
func (w Window) FromString() string {
	return w.From.Format(DateLayout)
}

// ToString formats the upper bound as YYYY-MM-DD.
func (w Window) ToString() string {
	return w.To.Format(DateLayout)
}
