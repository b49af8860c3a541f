package gemini

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"testing"

	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeClient is a function-field mock of contentClient.
type fakeClient struct {
	GenerateContentFn func(call int) (*genai.GenerateContentResponse, error)
	StreamFn          func(call int) []streamItem
	calls             int
	lastModel         string
}

type streamItem struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeClient) GenerateContent(
	_ context.Context,
	model string,
	_ []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.lastModel = model
	return f.GenerateContentFn(f.calls)
}

func (f *fakeClient) GenerateContentStream(
	_ context.Context,
	model string,
	_ []*genai.Content,
	_ *genai.GenerateContentConfig,
) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.calls++
	f.lastModel = model
	items := f.StreamFn(f.calls)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, it := range items {
			if !yield(it.resp, it.err) {
				return
			}
		}
	}
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		ModelName:         "gemini-test",
		MaxRetries:        2,
		RetryDelaySeconds: 1,
	}
}

func newTestGenerator(client contentClient) *GeminiGenerator {
	g := newGenerator(logger.NewDiscardLogger(), client, testConfig())
	g.policy.BaseDelay = 1 // nanosecond backoff keeps retries fast
	return g
}

func TestNewGeminiGenerator_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewGeminiGenerator(ctx, nil, testConfig(), "key")
	assert.Error(t, err)

	_, err = NewGeminiGenerator(ctx, logger.NewDiscardLogger(), testConfig(), "  ")
	assert.ErrorIs(t, err, generation.ErrMissingAPIKey)

	cfg := testConfig()
	cfg.ModelName = ""
	_, err = NewGeminiGenerator(ctx, logger.NewDiscardLogger(), cfg, "key")
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerate_Success(t *testing.T) {
	client := &fakeClient{
		GenerateContentFn: func(int) (*genai.GenerateContentResponse, error) {
			return textResponse("# Title\n", "Body"), nil
		},
	}
	g := newTestGenerator(client)

	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "# Title\nBody", text)
	assert.Equal(t, "gemini-test", client.lastModel)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	g := newTestGenerator(&fakeClient{})
	_, err := g.Generate(context.Background(), "")
	assert.ErrorIs(t, err, generation.ErrEmptyPrompt)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{
		GenerateContentFn: func(call int) (*genai.GenerateContentResponse, error) {
			if call < 3 {
				return nil, genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}
			}
			return textResponse("ok"), nil
		},
	}
	g := newTestGenerator(client)

	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, client.calls)
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	client := &fakeClient{
		GenerateContentFn: func(int) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("connection reset")
		},
	}
	g := newTestGenerator(client)

	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 3, client.calls)
}

func TestGenerate_PermanentErrors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr error
	}{
		{
			name:    "bad request",
			err:     genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid"},
			wantErr: generation.ErrInvalidConfig,
		},
		{
			name: "safety block",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
				Content:      &genai.Content{},
			}}},
			wantErr: generation.ErrContentBlocked,
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"},
			},
			wantErr: generation.ErrContentBlocked,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "nil content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: generation.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{
				GenerateContentFn: func(int) (*genai.GenerateContentResponse, error) {
					return tt.resp, tt.err
				},
			}
			g := newTestGenerator(client)

			_, err := g.Generate(context.Background(), "prompt")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, client.calls, "permanent errors are not retried")
		})
	}
}

func TestGenerateStream_AccumulatesChunks(t *testing.T) {
	client := &fakeClient{
		StreamFn: func(int) []streamItem {
			return []streamItem{
				{resp: textResponse("# He")},
				{resp: textResponse("")},
				{resp: textResponse("llo\n")},
				{resp: textResponse("world")},
			}
		},
	}
	g := newTestGenerator(client)

	var seen []string
	text, err := g.GenerateStream(context.Background(), "prompt", func(acc string) {
		seen = append(seen, acc)
	})
	require.NoError(t, err)
	assert.Equal(t, "# Hello\nworld", text)
	assert.Equal(t, []string{"# He", "# Hello\n", "# Hello\nworld"}, seen)
}

func TestGenerateStream_RetryRestartsAccumulation(t *testing.T) {
	client := &fakeClient{
		StreamFn: func(call int) []streamItem {
			if call == 1 {
				return []streamItem{
					{resp: textResponse("stale")},
					{err: genai.APIError{Code: http.StatusTooManyRequests}},
				}
			}
			return []streamItem{{resp: textResponse("fresh")}}
		},
	}
	g := newTestGenerator(client)

	var last string
	text, err := g.GenerateStream(context.Background(), "prompt", func(acc string) { last = acc })
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	assert.Equal(t, "fresh", last)
	assert.Equal(t, 2, client.calls)
}

func TestGenerateStream_EmptyStream(t *testing.T) {
	client := &fakeClient{
		StreamFn: func(int) []streamItem { return nil },
	}
	g := newTestGenerator(client)

	_, err := g.GenerateStream(context.Background(), "prompt", nil)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestTestConnection(t *testing.T) {
	ok := &fakeClient{
		GenerateContentFn: func(int) (*genai.GenerateContentResponse, error) {
			return textResponse("ok"), nil
		},
	}
	assert.NoError(t, newTestGenerator(ok).TestConnection(context.Background()))

	denied := &fakeClient{
		GenerateContentFn: func(int) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: http.StatusForbidden}
		},
	}
	err := newTestGenerator(denied).TestConnection(context.Background())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	assert.Equal(t, 1, denied.calls)
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			nil,
			{Text: "answer"},
		}},
	}}}
	assert.Equal(t, "answer", responseText(resp))
}
