package covid

import (
	"context"
)

// Provider abstracts an upstream statistics source (e.g. coronavirus.data.gov.uk).
// Records may be returned in any order.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, sel Selector) ([]Record, error)
}
