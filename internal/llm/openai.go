package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures OpenAIClient.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for OpenAI-compatible gateways
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per call; 0 means no extra deadline

	// EstimateTokens loads a local tokenizer in the background to size
	// prompts when the API omits its usage block. Loading may hit the network.
	EstimateTokens bool
}

// OpenAIClient is a Provider backed by the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	enc    atomic.Pointer[tiktoken.Tiktoken]
}

// NewOpenAIClient builds a client. Model defaults to gpt-4.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c := &OpenAIClient{client: openai.NewClientWithConfig(oc), cfg: cfg}
	if cfg.EstimateTokens {
		go c.loadEncoder()
	}
	return c
}

func (c *OpenAIClient) loadEncoder() {
	tke, err := tiktoken.EncodingForModel(c.cfg.Model)
	if err != nil {
		log.Debug().Err(err).Str("model", c.cfg.Model).Msg("tokenizer unavailable; prompt token estimates disabled")
		return
	}
	c.enc.Store(tke)
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Complete implements Provider.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	})
	llmLat.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		llmReqs.WithLabelValues(c.cfg.Model, "error").Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		llmReqs.WithLabelValues(c.cfg.Model, "empty").Inc()
		return "", ErrEmptyResponse
	}
	llmReqs.WithLabelValues(c.cfg.Model, "ok").Inc()

	if n := resp.Usage.PromptTokens; n > 0 {
		llmPromptTokens.WithLabelValues(c.cfg.Model).Observe(float64(n))
	} else if n := c.estimate(systemPrompt, userPrompt); n > 0 {
		llmPromptTokens.WithLabelValues(c.cfg.Model).Observe(float64(n))
	}
	return resp.Choices[0].Message.Content, nil
}

// estimate returns a local token count, or 0 when no tokenizer is loaded.
func (c *OpenAIClient) estimate(parts ...string) int {
	tke := c.enc.Load()
	if tke == nil {
		return 0
	}
	n := 0
	for _, p := range parts {
		n += len(tke.Encode(p, nil, nil))
	}
	return n
}
