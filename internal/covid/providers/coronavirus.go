package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/covid-trends/internal/covid"
)

// DefaultCoronavirusAPIURL is the UK coronavirus dashboard v1 data endpoint.
const DefaultCoronavirusAPIURL = "https://api.coronavirus.data.gov.uk/v1/data"

// maxPages bounds pagination in case the upstream keeps returning a next link.
const maxPages = 100

// CoronavirusAPIProvider implements covid.Provider for api.coronavirus.data.gov.uk.
type CoronavirusAPIProvider struct {
	name    string
	baseURL string
	cfg     ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewCoronavirusAPIProvider(client *resty.Client, baseURL string, backoff BackoffConfig) *CoronavirusAPIProvider {
	if baseURL == "" {
		baseURL = DefaultCoronavirusAPIURL
	}

	return &CoronavirusAPIProvider{
		name:    "coronavirus-api",
		baseURL: baseURL,
		cfg: ClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("coronavirus-api"),
	}
}

func (p *CoronavirusAPIProvider) Name() string {
	return p.name
}

type page struct {
	Data       []map[string]json.RawMessage `json:"data"`
	Pagination struct {
		Next *string `json:"next"`
	} `json:"pagination"`
}

// Fetch returns every daily row for the selection, walking all result pages.
func (p *CoronavirusAPIProvider) Fetch(ctx context.Context, sel covid.Selector) ([]covid.Record, error) {
	if sel.Metric == "" {
		return nil, fmt.Errorf("metric is required")
	}

	filters := fmt.Sprintf("areaType=%s;areaName=%s", sel.AreaType, sel.AreaName)
	structure, err := structureFor(sel.Metric)
	if err != nil {
		return nil, err
	}

	var records []covid.Record
	for n := 1; n <= maxPages; n++ {
		pageNum := n
		resp, err := doRequestWithResilience(ctx, p.cfg, p.circuit, p.baseURL, func(r *resty.Request) *resty.Request {
			return r.
				SetHeader("Accept", "application/json").
				SetQueryParams(map[string]string{
					"filters":   filters,
					"structure": structure,
					"format":    "json",
					"page":      strconv.Itoa(pageNum),
				})
		})
		if err != nil {
			return nil, err
		}

		// The API signals "past the last page" (or nothing at all) with 204.
		if resp.StatusCode() == http.StatusNoContent || len(resp.Body()) == 0 {
			break
		}

		var payload page
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return nil, fmt.Errorf("decode page %d: %w", pageNum, err)
		}

		for i, row := range payload.Data {
			rec, err := decodeRow(row, sel.Metric)
			if err != nil {
				return nil, fmt.Errorf("page %d row %d: %w", pageNum, i, err)
			}
			records = append(records, rec)
		}

		if payload.Pagination.Next == nil || *payload.Pagination.Next == "" {
			break
		}
	}

	return records, nil
}

// structureFor builds the field-selection object the API expects.
func structureFor(metric string) (string, error) {
	b, err := json.Marshal(map[string]string{
		"date":     "date",
		"areaName": "areaName",
		"areaCode": "areaCode",
		metric:     metric,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRow(row map[string]json.RawMessage, metric string) (covid.Record, error) {
	var rec covid.Record

	var date string
	if err := json.Unmarshal(row["date"], &date); err != nil {
		return rec, fmt.Errorf("invalid date field: %w", err)
	}
	ts, err := time.Parse(covid.DateLayout, date)
	if err != nil {
		return rec, err
	}
	rec.Date = ts

	if raw, ok := row["areaName"]; ok {
		if err := json.Unmarshal(raw, &rec.AreaName); err != nil {
			return rec, fmt.Errorf("invalid areaName: %w", err)
		}
	}
	if raw, ok := row["areaCode"]; ok {
		if err := json.Unmarshal(raw, &rec.AreaCode); err != nil {
			return rec, fmt.Errorf("invalid areaCode: %w", err)
		}
	}

	// Missing and null both decode to a nil Value.
	if raw, ok := row[metric]; ok {
		var v *float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return rec, fmt.Errorf("invalid %s value: %w", metric, err)
		}
		rec.Value = v
	}

	return rec, nil
}
