package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeVisionClient struct {
	response string
	err      error
	calls    int
	prompt   string
	mimeType string
	image    []byte
	deadline bool
}

func (f *fakeVisionClient) Complete(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	f.calls++
	f.prompt = prompt
	f.mimeType = mimeType
	f.image = image
	_, f.deadline = ctx.Deadline()
	return f.response, f.err
}

const fencedScenario = "```json\n" +
	`{"update_time":"2024-01-01 10:00","comparison_date":"昨日","metrics":[` +
	`{"name":"成交金额","value":"¥12,345.67","comparison":"+5%","status":"up"},` +
	`{"name":"退款金额","value":"100","comparison":"","status":""}]}` +
	"\n```"

func TestExtractor_FencedScenario(t *testing.T) {
	client := &fakeVisionClient{response: fencedScenario}
	log := logger.NewTestLogger()
	e := NewExtractor(client, log)

	r := e.Extract(context.Background(), pngHeader)

	assert.Equal(t, "2024-01-01 10:00", r.UpdateTime)
	assert.Equal(t, "昨日", r.ComparisonDate)
	require.Len(t, r.Metrics, 1)
	assert.Equal(t, MetricTransactionAmount, r.Metrics[0].Name)
	assert.Equal(t, "12345.67", FilterNumeric(r.Metrics[0].Value))
	_, err := strconv.ParseFloat(FilterNumeric(r.Metrics[0].Value), 64)
	assert.NoError(t, err)

	assert.Equal(t, "image/png", client.mimeType)
	assert.Equal(t, e.Prompt(), client.prompt)
	assert.Len(t, log.EntriesAt("warn"), 1)
}

func TestExtractor_NumericValueKeepsOtherMetrics(t *testing.T) {
	client := &fakeVisionClient{response: `{"metrics":[` +
		`{"name":"成交金额","value":"¥1,000"},` +
		`{"name":"核销券数","value":42},` +
		`{"name":"商品访问人数","value":{"count":3}}]}`}
	e := NewExtractor(client, logger.NewTestLogger())

	r := e.Extract(context.Background(), pngHeader)

	require.Len(t, r.Metrics, 2)
	assert.Equal(t, MetricTransactionAmount, r.Metrics[0].Name)
	assert.Equal(t, "¥1,000", r.Metrics[0].Value)
	assert.Equal(t, MetricRedeemedCoupons, r.Metrics[1].Name)
	assert.Equal(t, "42", r.Metrics[1].Value)
}

func TestExtractor_LoadingValueDropped(t *testing.T) {
	client := &fakeVisionClient{response: `{"update_time":"","comparison_date":"","metrics":[{"name":"核销券数","value":"加载中","comparison":"","status":""}]}`}
	e := NewExtractor(client, logger.NewTestLogger())

	r := e.Extract(context.Background(), pngHeader)

	assert.True(t, r.Empty())
}

func TestExtractor_Idempotent(t *testing.T) {
	client := &fakeVisionClient{response: fencedScenario}
	e := NewExtractor(client, logger.NewTestLogger())

	first, err := json.Marshal(e.Extract(context.Background(), pngHeader))
	require.NoError(t, err)
	second, err := json.Marshal(e.Extract(context.Background(), pngHeader))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, client.calls)
}

func TestExtractor_FailuresYieldEmptyResult(t *testing.T) {
	tests := []struct {
		name       string
		client     *fakeVisionClient
		screenshot []byte
		wantCalls  int
	}{
		{
			name:       "client error",
			client:     &fakeVisionClient{err: errors.New("connection reset")},
			screenshot: pngHeader,
			wantCalls:  1,
		},
		{
			name:       "non json response",
			client:     &fakeVisionClient{response: "抱歉，我无法识别这张图片。"},
			screenshot: pngHeader,
			wantCalls:  1,
		},
		{
			name:       "empty screenshot",
			client:     &fakeVisionClient{response: fencedScenario},
			screenshot: nil,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			e := NewExtractor(tt.client, log)

			r := e.Extract(context.Background(), tt.screenshot)

			assert.True(t, r.Empty())
			assert.Equal(t, tt.wantCalls, tt.client.calls)
		})
	}
}

func TestExtractor_Options(t *testing.T) {
	client := &fakeVisionClient{response: `{"metrics":[{"name":"访客数","value":"3"},{"name":"成交金额","value":"4"}]}`}
	e := NewExtractor(client, logger.NewTestLogger(),
		WithAllowList(AllowList{Allowed: []string{"访客数"}}),
		WithRequestTimeout(time.Minute),
	)

	r := e.Extract(context.Background(), pngHeader)

	require.Len(t, r.Metrics, 1)
	assert.Equal(t, "访客数", r.Metrics[0].Name)
	assert.True(t, client.deadline)
	assert.Contains(t, e.Prompt(), "访客数")
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(DefaultAllowList())

	for _, name := range DefaultAllowList().Allowed {
		assert.Contains(t, p, name)
	}
	assert.Contains(t, p, MetricRefundAmount)
	assert.Contains(t, p, `"update_time"`)
	assert.Contains(t, p, "绝对不要猜测")
	assert.NotContains(t, p, "%!")
}
