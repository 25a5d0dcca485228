package covid

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when the provider answered successfully but had no rows.
	ErrNoData = errors.New("no data for selection")
)

// FetchError wraps a provider failure for a given selection.
type FetchError struct {
	Provider string
	Selector Selector
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Selector.Key(), e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnknownMetricError is returned by Labels.Lookup for metrics without a display label.
type UnknownMetricError struct {
	Metric string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("no label for metric %q", e.Metric)
}
