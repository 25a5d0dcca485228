package covid

import (
	"context"
	"log"
	"sort"
	"time"
)

// Recorder receives fetch outcomes. *observability.Metrics satisfies it.
type Recorder interface {
	ObserveFetch(provider, outcome string, elapsed time.Duration, records int)
}

// Service builds date-ordered series from a provider.
type Service struct {
	provider     Provider
	fetchTimeout time.Duration
	recorder     Recorder
}

// NewService creates a new Service. A zero fetchTimeout disables the per-call deadline.
func NewService(provider Provider, fetchTimeout time.Duration, recorder Recorder) *Service {
	return &Service{
		provider:     provider,
		fetchTimeout: fetchTimeout,
		recorder:     recorder,
	}
}

// BuildSeries fetches the series for sel, orders it by date and trims it to the
// requested window. from and to are YYYY-MM-DD strings; empty, malformed or
// out-of-range bounds fall back to the series' own first/last date.
func (s *Service) BuildSeries(ctx context.Context, sel Selector, from, to string) (Series, Window, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	log.Printf("DEBUG: BuildSeries called for %s via %s", sel.Key(), s.provider.Name())

	start := time.Now()
	records, err := s.provider.Fetch(ctx, sel)
	if err != nil {
		s.observe("error", start, 0)
		log.Printf("ERROR: provider %s fetch failed for %s: %v", s.provider.Name(), sel.Key(), err)
		return nil, Window{}, &FetchError{Provider: s.provider.Name(), Selector: sel, Err: err}
	}

	series := orderByDate(records)
	if len(series) == 0 {
		s.observe("empty", start, 0)
		return nil, Window{}, ErrNoData
	}
	s.observe("ok", start, len(series))

	series, window := clampWindow(series, parseDate(from), parseDate(to))
	return series, window, nil
}

func (s *Service) observe(outcome string, start time.Time, n int) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveFetch(s.provider.Name(), outcome, time.Since(start), n)
}

// orderByDate sorts ascending by date and keeps the first record seen for each date.
func orderByDate(records []Record) Series {
	sorted := make(Series, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := sorted[:0]
	for i, r := range sorted {
		if i > 0 && r.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// clampWindow applies the lower bound first and then resolves the upper bound
// against the already trimmed series. A bound is only honoured when it lies
// strictly between the current first and last dates.
func clampWindow(series Series, from, to *time.Time) (Series, Window) {
	var w Window

	if from != nil && from.After(series.First()) && from.Before(series.Last()) {
		series = filter(series, func(r Record) bool { return !r.Date.Before(*from) })
		w.From = *from
	} else {
		w.From = series.First()
	}

	if to != nil && to.After(series.First()) && to.Before(series.Last()) {
		series = filter(series, func(r Record) bool { return !r.Date.After(*to) })
		w.To = *to
	} else {
		w.To = series.Last()
	}

	return series, w
}

func filter(series Series, keep func(Record) bool) Series {
	out := make(Series, 0, len(series))
	for _, r := range series {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// parseDate returns nil for empty or malformed input.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		log.Printf("INFO: ignoring malformed date %q", s)
		return nil
	}
	return &t
}
