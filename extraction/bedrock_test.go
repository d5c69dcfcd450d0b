package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockClient_Complete(t *testing.T) {
	invoker := &fakeInvoker{body: `{"content":[{"type":"text","text":"{\"metrics\":[]}"}],"stop_reason":"end_turn"}`}
	client := &BedrockClient{client: invoker, modelID: "anthropic.claude-sonnet-4-6", maxTokens: 2048}

	out, err := client.Complete(context.Background(), "read the dashboard", []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, `{"metrics":[]}`, out)

	assert.Equal(t, "anthropic.claude-sonnet-4-6", aws.ToString(invoker.input.ModelId))

	var body struct {
		MaxTokens int `json:"max_tokens"`
		Messages  []struct {
			Content []struct {
				Type   string `json:"type"`
				Text   string `json:"text"`
				Source struct {
					MediaType string `json:"media_type"`
					Data      string `json:"data"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(invoker.input.Body, &body))
	assert.Equal(t, 2048, body.MaxTokens)
	require.Len(t, body.Messages, 1)
	require.Len(t, body.Messages[0].Content, 2)
	assert.Equal(t, "image", body.Messages[0].Content[0].Type)
	assert.Equal(t, "image/png", body.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "AQID", body.Messages[0].Content[0].Source.Data)
	assert.Equal(t, "read the dashboard", body.Messages[0].Content[1].Text)
}

func TestBedrockClient_Errors(t *testing.T) {
	t.Run("invoke error", func(t *testing.T) {
		client := &BedrockClient{client: &fakeInvoker{err: errors.New("throttled")}, modelID: "m"}
		_, err := client.Complete(context.Background(), "p", []byte{1}, "image/png")
		assert.ErrorContains(t, err, "throttled")
	})

	t.Run("no text content", func(t *testing.T) {
		client := &BedrockClient{client: &fakeInvoker{body: `{"content":[]}`}, modelID: "m"}
		_, err := client.Complete(context.Background(), "p", []byte{1}, "image/png")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("empty model", func(t *testing.T) {
		_, err := NewBedrockClient(context.Background(), "us-east-1", "", 1024)
		assert.Error(t, err)
	})
}
