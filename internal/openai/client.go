package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the OpenAI model used for text generation
	DefaultChatModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model returns no content
	ErrEmptyCompletion = errors.New("no completion content returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// CompletionAPI defines the interface for chat completion
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest holds the parameters of a single completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Client wraps the OpenAI API client for embeddings and completions
type Client struct {
	embeddings  EmbeddingAPI
	completions CompletionAPI
	dimensions  int
	chatModel   string
}

type OpenAIAdapter struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	chatModel string
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel, chatModel string) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:    openai.NewClient(apiKey),
		model:     model,
		chatModel: chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat completion API
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Config holds client construction options.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
}

// NewClient creates a new OpenAI client with default models
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, chatModel)
	return &Client{
		embeddings:  adapter,
		completions: adapter,
		dimensions:  dimensions,
		chatModel:   chatModel,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.embeddings.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// Complete sends a single completion request and returns the model's text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	if userPrompt == "" {
		return "", ErrEmptyText
	}

	text, err := c.completions.CreateCompletion(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  float32(temperature),
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return text, nil
}

// Model returns the configured chat model name.
func (c *Client) Model() string {
	return c.chatModel
}
