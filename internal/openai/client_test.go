package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbeddingAPI struct {
	embedding []float32
	err       error
	lastText  string
}

func (s *stubEmbeddingAPI) CreateEmbeddings(_ context.Context, text string) ([]float32, error) {
	s.lastText = text
	return s.embedding, s.err
}

type stubCompletionAPI struct {
	text    string
	err     error
	lastReq CompletionRequest
}

func (s *stubCompletionAPI) CreateCompletion(_ context.Context, req CompletionRequest) (string, error) {
	s.lastReq = req
	return s.text, s.err
}

func TestGenerateEmbedding(t *testing.T) {
	embedding := make([]float32, DefaultEmbeddingDimensions)
	embedding[0] = 0.5
	stub := &stubEmbeddingAPI{embedding: embedding}
	client := &Client{embeddings: stub, dimensions: DefaultEmbeddingDimensions}

	result, err := client.GenerateEmbedding(context.Background(), "article premier")

	require.NoError(t, err)
	assert.Len(t, result, DefaultEmbeddingDimensions)
	assert.Equal(t, "article premier", stub.lastText)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := &Client{embeddings: &stubEmbeddingAPI{}, dimensions: DefaultEmbeddingDimensions}

	_, err := client.GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	stub := &stubEmbeddingAPI{embedding: []float32{0.1, 0.2}}
	client := &Client{embeddings: stub, dimensions: DefaultEmbeddingDimensions}

	_, err := client.GenerateEmbedding(context.Background(), "some text")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbedding_APIError(t *testing.T) {
	stub := &stubEmbeddingAPI{err: errors.New("rate limit exceeded")}
	client := &Client{embeddings: stub, dimensions: DefaultEmbeddingDimensions}

	_, err := client.GenerateEmbedding(context.Background(), "some text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGenerateEmbedding_CustomDimensions(t *testing.T) {
	stub := &stubEmbeddingAPI{embedding: []float32{0.1, 0.2, 0.3}}
	client := &Client{embeddings: stub, dimensions: 3}

	result, err := client.GenerateEmbedding(context.Background(), "some text")

	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestComplete(t *testing.T) {
	stub := &stubCompletionAPI{text: "L'article 5 prévoit un délai de trente jours."}
	client := &Client{completions: stub, chatModel: "gpt-4o-mini"}

	text, err := client.Complete(context.Background(), "system", "question", 0.1, 2048)

	require.NoError(t, err)
	assert.Equal(t, "L'article 5 prévoit un délai de trente jours.", text)
	assert.Equal(t, "system", stub.lastReq.SystemPrompt)
	assert.Equal(t, "question", stub.lastReq.UserPrompt)
	assert.InDelta(t, 0.1, stub.lastReq.Temperature, 0.001)
	assert.Equal(t, 2048, stub.lastReq.MaxTokens)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client := &Client{completions: &stubCompletionAPI{}}

	_, err := client.Complete(context.Background(), "", "", 0, 0)

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestComplete_APIError(t *testing.T) {
	stub := &stubCompletionAPI{err: errors.New("model overloaded")}
	client := &Client{completions: stub}

	_, err := client.Complete(context.Background(), "", "question", 0.1, 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()

	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "test-key"})

	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
	assert.Equal(t, string(DefaultChatModel), client.Model())
}
