package covid

import "sort"

// DefaultLabels maps the metrics offered on the form to human readable names.
var DefaultLabels = map[string]string{
	"newCasesByPublishDate":      "New cases",
	"newDeaths28DaysByDeathDate": "New deaths",
}

// Labels is an immutable metric key -> display label table.
type Labels struct {
	m    map[string]string
	keys []string
}

// NewLabels copies base and then applies overrides on top of it.
func NewLabels(base map[string]string, overrides map[string]string) Labels {
	m := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		m[k] = v
	}
	for k, v := range overrides {
		if k == "" || v == "" {
			continue
		}
		m[k] = v
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Labels{m: m, keys: keys}
}

// Lookup returns the label for metric or an *UnknownMetricError.
func (l Labels) Lookup(metric string) (string, error) {
	if v, ok := l.m[metric]; ok {
		return v, nil
	}
	return "", &UnknownMetricError{Metric: metric}
}

// Label is like Lookup but falls back to the raw metric key.
func (l Labels) Label(metric string) string {
	if v, err := l.Lookup(metric); err == nil {
		return v
	}
	return metric
}

// Metrics returns the known metric keys in sorted order.
func (l Labels) Metrics() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}
