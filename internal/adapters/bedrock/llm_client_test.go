package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

type fakeRuntime struct {
	body    []byte
	err     error
	request map[string]interface{}
	modelID string
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.modelID = *params.ModelId
	_ = json.Unmarshal(params.Body, &f.request)
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func newClient(rt *fakeRuntime, model string) *BedrockClient {
	return NewBedrockClient(rt, model, 500, 0.1, 0.9, 1000, zap.NewNop(), utils.NewTextProcessor(nil))
}

var sampleResult = &core.Result{ID: "r1", FullBody: "Comment\n\nFrom: a@x.com\nSubject: Hi\n\nBody"}

func TestReviewChainClaude(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"completion": " {\"depth\": 1, \"original_from\": \"a@x.com\", \"original_subject\": \"Hi\", \"explanation\": \"one header block\"}"}`)}

	review, err := newClient(rt, "anthropic.claude-v2").ReviewChain(context.Background(), sampleResult)
	require.NoError(t, err)
	assert.Equal(t, 1, review.Depth)
	assert.Equal(t, "a@x.com", review.OriginalFrom)
	assert.Equal(t, "anthropic.claude-v2", review.ModelUsed)
	assert.False(t, review.ReviewedAt.IsZero())

	assert.Equal(t, "anthropic.claude-v2", rt.modelID)
	assert.Contains(t, rt.request["prompt"], "Human:")
	assert.EqualValues(t, 500, rt.request["max_tokens_to_sample"])
}

func TestReviewChainTitan(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"results": [{"outputText": "{\"depth\": 2}"}]}`)}

	review, err := newClient(rt, "amazon.titan-text-express-v1").ReviewChain(context.Background(), sampleResult)
	require.NoError(t, err)
	assert.Equal(t, 2, review.Depth)
	assert.Contains(t, rt.request, "textGenerationConfig")
}

func TestReviewChainTitanEmpty(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"results": []}`)}

	_, err := newClient(rt, "amazon.titan-text-express-v1").ReviewChain(context.Background(), sampleResult)
	assert.Error(t, err)
}

func TestReviewChainInvokeError(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("access denied")}

	_, err := newClient(rt, "meta.llama3").ReviewChain(context.Background(), sampleResult)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
