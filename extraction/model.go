// Package extraction turns a dashboard screenshot into validated metric readings using a
// vision-capable inference model. The model is treated as untrusted: every reading it returns
// is checked against the metric allow-list and for numeric well-formedness before use.
package extraction

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Metric is one metric card read off the dashboard.
type Metric struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Comparison string `json:"comparison"`
	Status     string `json:"status"`

	// malformed is set when the model sent a field that is neither a string, a number nor null.
	malformed bool
}

// UnmarshalJSON accepts strings, numbers and nulls for every field. Numbers are kept as their
// decimal text. Any other shape marks the metric malformed so Validate drops it alone instead
// of the whole result failing to decode.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       json.RawMessage `json:"name"`
		Value      json.RawMessage `json:"value"`
		Comparison json.RawMessage `json:"comparison"`
		Status     json.RawMessage `json:"status"`
	}
	*m = Metric{}
	if err := json.Unmarshal(data, &raw); err != nil {
		m.Value = string(data)
		m.malformed = true
		return nil
	}

	var okName, okValue, okComparison, okStatus bool
	m.Name, okName = scalarText(raw.Name)
	m.Value, okValue = scalarText(raw.Value)
	m.Comparison, okComparison = scalarText(raw.Comparison)
	m.Status, okStatus = scalarText(raw.Status)
	m.malformed = !(okName && okValue && okComparison && okStatus)
	return nil
}

func scalarText(raw json.RawMessage) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(raw), false
	}

	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, "eE") {
			return s, true
		}
		f, err := t.Float64()
		if err != nil {
			return s, false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	default:
		return string(raw), false
	}
}

// Result is the structured payload extracted from one screenshot.
type Result struct {
	UpdateTime     string   `json:"update_time"`
	ComparisonDate string   `json:"comparison_date"`
	Metrics        []Metric `json:"metrics"`
}

// Empty reports whether the result carries no metrics.
func (r Result) Empty() bool {
	return len(r.Metrics) == 0
}
