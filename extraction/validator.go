package extraction

import (
	"strconv"
	"strings"
)

// Metric names as they appear on the dashboard.
const (
	MetricTransactionAmount = "成交金额"
	MetricRedemptionAmount  = "核销金额"
	MetricProductVisitors   = "商品访问人数"
	MetricRedeemedCoupons   = "核销券数"
	MetricRefundAmount      = "退款金额"
)

// AllowList is the set of metric names that may be reported, plus names that must never be.
type AllowList struct {
	Allowed  []string
	Excluded []string
}

// DefaultAllowList returns the dashboard's reportable metrics.
func DefaultAllowList() AllowList {
	return AllowList{
		Allowed: []string{
			MetricTransactionAmount,
			MetricRedemptionAmount,
			MetricProductVisitors,
			MetricRedeemedCoupons,
		},
		Excluded: []string{MetricRefundAmount},
	}
}

// Permits reports whether name is on the allow-list and not explicitly excluded.
func (a AllowList) Permits(name string) bool {
	name = strings.TrimSpace(name)
	for _, ex := range a.Excluded {
		if name == ex {
			return false
		}
	}
	for _, al := range a.Allowed {
		if name == al {
			return true
		}
	}
	return false
}

// FilterNumeric keeps only ASCII digits and decimal points.
func FilterNumeric(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidValue reports whether v is either empty (not yet visible) or reduces to a float.
func ValidValue(v string) bool {
	if strings.TrimSpace(v) == "" {
		return true
	}
	filtered := FilterNumeric(v)
	if filtered == "" || filtered == "." {
		return false
	}
	_, err := strconv.ParseFloat(filtered, 64)
	return err == nil
}

// Rejection describes a metric that Validate dropped.
type Rejection struct {
	Metric Metric
	Reason string
}

// Validate returns a copy of r holding only permitted metrics with valid values, in their
// original order, along with the rejected ones. The metric slice is never nil.
func Validate(r Result, allow AllowList) (Result, []Rejection) {
	out := Result{
		UpdateTime:     r.UpdateTime,
		ComparisonDate: r.ComparisonDate,
		Metrics:        make([]Metric, 0, len(r.Metrics)),
	}

	var rejected []Rejection
	for _, m := range r.Metrics {
		switch {
		case m.malformed:
			rejected = append(rejected, Rejection{Metric: m, Reason: "field not a string or number"})
		case !allow.Permits(m.Name):
			rejected = append(rejected, Rejection{Metric: m, Reason: "name not allowed"})
		case !ValidValue(m.Value):
			rejected = append(rejected, Rejection{Metric: m, Reason: "value not numeric"})
		default:
			m.Name = strings.TrimSpace(m.Name)
			if strings.TrimSpace(m.Value) == "" {
				m.Value = ""
			}
			out.Metrics = append(out.Metrics, m)
		}
	}

	return out, rejected
}
