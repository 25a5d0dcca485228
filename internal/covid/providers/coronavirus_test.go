package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/covid-trends/internal/covid"
)

var england = covid.Selector{AreaType: "nation", AreaName: "England", Metric: "newCasesByPublishDate"}

func newTestProvider(url string, backoff BackoffConfig) *CoronavirusAPIProvider {
	client := resty.New().SetTimeout(5 * time.Second)
	return NewCoronavirusAPIProvider(client, url, backoff)
}

func TestFetchWalksPages(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()

		assert.Equal(t, "areaType=nation;areaName=England", q.Get("filters"))
		var structure map[string]string
		assert.NoError(t, json.Unmarshal([]byte(q.Get("structure")), &structure))
		assert.Equal(t, map[string]string{
			"date":                  "date",
			"areaName":              "areaName",
			"areaCode":              "areaCode",
			"newCasesByPublishDate": "newCasesByPublishDate",
		}, structure)

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"data":[
				{"date":"2021-01-03","areaName":"England","areaCode":"E92000001","newCasesByPublishDate":300},
				{"date":"2021-01-02","areaName":"England","areaCode":"E92000001","newCasesByPublishDate":null}
			],"pagination":{"next":"/v1/data?page=2"}}`))
		case "2":
			_, _ = w.Write([]byte(`{"data":[
				{"date":"2021-01-01","areaName":"England","areaCode":"E92000001","newCasesByPublishDate":100}
			],"pagination":{"next":null}}`))
		default:
			t.Errorf("unexpected page %q", q.Get("page"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, BackoffConfig{})
	recs, err := p.Fetch(context.Background(), england)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	assert.Equal(t, time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC), recs[0].Date)
	assert.Equal(t, "E92000001", recs[0].AreaCode)
	assert.Equal(t, "England", recs[0].AreaName)
	require.NotNil(t, recs[0].Value)
	assert.Equal(t, 300.0, *recs[0].Value)
	assert.Nil(t, recs[1].Value)
}

func TestFetchStopsOnNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	recs, err := newTestProvider(srv.URL, BackoffConfig{}).Fetch(context.Background(), england)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"response":"Invalid filter"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond})
	_, err := p.Fetch(context.Background(), england)
	require.ErrorIs(t, err, errUnexpected)
	assert.Contains(t, err.Error(), "400")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"date":"2021-01-01","newCasesByPublishDate":1}],"pagination":{}}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	recs, err := p.Fetch(context.Background(), england)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetchSingleAttemptByDefault(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, BackoffConfig{}).Fetch(context.Background(), england)
	require.ErrorIs(t, err, errServerError)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"date":"01/01/2021","newCasesByPublishDate":1}]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, BackoffConfig{}).Fetch(context.Background(), england)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1 row 0")
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider(srv.URL, BackoffConfig{}).Fetch(ctx, england)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoRequestWithResilienceConfig(t *testing.T) {
	cb := newCircuitBreaker("test")
	build := func(r *resty.Request) *resty.Request { return r }

	_, err := doRequestWithResilience(context.Background(), ClientConfig{}, cb, "http://unused", build)
	assert.ErrorIs(t, err, errNoHTTPClient)

	_, err = doRequestWithResilience(context.Background(), ClientConfig{
		Client:  resty.New(),
		Backoff: BackoffConfig{MaxRetries: 2},
	}, cb, "http://unused", build)
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestFetchRejectsMalformedAreaFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"date":"2021-01-01","areaName":"England","areaCode":92000001,"newCasesByPublishDate":1}]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, BackoffConfig{}).Fetch(context.Background(), england)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid areaCode")
}

func TestClientErrorsKeepCircuitClosed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 7 {
			http.Error(w, `{"response":"Invalid areaName"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"date":"2021-01-01","areaName":"England","areaCode":"E92000001","newCasesByPublishDate":5}]}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, BackoffConfig{})
	for i := 0; i < 7; i++ {
		_, err := p.Fetch(context.Background(), england)
		require.ErrorIs(t, err, errUnexpected)
		require.NotErrorIs(t, err, errCircuitOpen)
	}

	recs, err := p.Fetch(context.Background(), england)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, "closed", p.circuit.State().String())
	assert.EqualValues(t, 8, atomic.LoadInt32(&hits))
}
