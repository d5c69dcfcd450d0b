package extraction

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "¥12,345.67", want: "12345.67"},
		{in: "1,234", want: "1234"},
		{in: "加载中", want: ""},
		{in: "--", want: ""},
		{in: "+5.2%", want: "5.2"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterNumeric(tt.in))
		})
	}
}

func TestValidValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "empty means not yet visible", value: "", want: true},
		{name: "whitespace is empty", value: "  ", want: true},
		{name: "currency with separators", value: "¥12,345.67", want: true},
		{name: "plain integer", value: "42", want: true},
		{name: "loading text", value: "加载中", want: false},
		{name: "placeholder dashes", value: "--", want: false},
		{name: "lone decimal point", value: "约.", want: false},
		{name: "two decimal points", value: "1.2.3", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidValue(tt.value))
		})
	}
}

func TestAllowList_Permits(t *testing.T) {
	allow := DefaultAllowList()

	assert.True(t, allow.Permits(MetricTransactionAmount))
	assert.True(t, allow.Permits(" "+MetricRedeemedCoupons+" "))
	assert.False(t, allow.Permits(MetricRefundAmount))
	assert.False(t, allow.Permits("支付订单数"))
	assert.False(t, allow.Permits(""))

	conflicting := AllowList{Allowed: []string{"a"}, Excluded: []string{"a"}}
	assert.False(t, conflicting.Permits("a"), "exclusion wins over allowance")
}

func TestValidate(t *testing.T) {
	in := Result{
		UpdateTime:     "2024-01-01 10:00",
		ComparisonDate: "昨日",
		Metrics: []Metric{
			{Name: MetricTransactionAmount, Value: "¥12,345.67", Comparison: "+5%", Status: "up"},
			{Name: MetricRefundAmount, Value: "100"},
			{Name: MetricRedeemedCoupons, Value: "加载中"},
			{Name: MetricProductVisitors, Value: " "},
			{Name: "支付订单数", Value: "7"},
			{Name: MetricRedemptionAmount, Value: "8,000"},
		},
	}

	out, rejected := Validate(in, DefaultAllowList())

	assert.Equal(t, in.UpdateTime, out.UpdateTime)
	assert.Equal(t, in.ComparisonDate, out.ComparisonDate)
	assert.Equal(t, []Metric{
		{Name: MetricTransactionAmount, Value: "¥12,345.67", Comparison: "+5%", Status: "up"},
		{Name: MetricProductVisitors, Value: ""},
		{Name: MetricRedemptionAmount, Value: "8,000"},
	}, out.Metrics)
	assert.Len(t, rejected, 3)

	for _, m := range out.Metrics {
		assert.True(t, DefaultAllowList().Permits(m.Name))
		if m.Value != "" {
			_, err := strconv.ParseFloat(FilterNumeric(m.Value), 64)
			assert.NoError(t, err)
		}
	}
}

func TestValidate_MalformedMetric(t *testing.T) {
	in := Result{Metrics: []Metric{
		{Name: MetricTransactionAmount, Value: "1"},
		{Name: MetricRedeemedCoupons, Value: "true", malformed: true},
	}}

	out, rejected := Validate(in, DefaultAllowList())

	assert.Equal(t, []Metric{{Name: MetricTransactionAmount, Value: "1"}}, out.Metrics)
	require.Len(t, rejected, 1)
	assert.Equal(t, "field not a string or number", rejected[0].Reason)
}

func TestValidate_NeverNilMetrics(t *testing.T) {
	out, _ := Validate(Result{}, DefaultAllowList())
	assert.NotNil(t, out.Metrics)
	assert.True(t, out.Empty())
}
