// Package llm is a thin client for OpenAI-compatible chat completion
// endpoints (OpenRouter, or anything speaking the same wire format).
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// ErrMissingAPIKey is returned when the client is constructed without a key.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// Message is a single chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Messages    []Message
	Temperature *float64
	// Model overrides the client default when set.
	Model string
}

// CompletionResult is the model's answer plus the token usage reported by
// the provider. TotalTokens is 0 when the provider omits usage.
type CompletionResult struct {
	Content     string
	TotalTokens int32
}

// completionTimeout bounds non-streaming calls. Streaming calls run until
// the caller's context ends.
const completionTimeout = 60 * time.Second

type Client struct {
	apiKey            string
	baseURL           string
	model             string
	http              *http.Client
	completionTimeout time.Duration
}

// NewClient builds a client for the given endpoint. Transient upstream
// failures (429, 5xx, connection resets) are retried twice with backoff.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	return &Client{
		apiKey:            apiKey,
		baseURL:           strings.TrimSuffix(baseURL, "/"),
		model:             model,
		http:              retryClient.StandardClient(),
		completionTimeout: completionTimeout,
	}, nil
}

// Model returns the client's default model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete runs a single non-streaming chat completion, bounded to 60s.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.completionTimeout)
	defer cancel()

	body := map[string]any{
		"model":    c.resolveModel(req.Model),
		"messages": req.Messages,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int32 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, errors.Wrap(err, "decode completion response")
	}
	if len(apiResp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	return &CompletionResult{
		Content:     apiResp.Choices[0].Message.Content,
		TotalTokens: apiResp.Usage.TotalTokens,
	}, nil
}

// Stream runs a streaming chat completion, invoking fn for every content
// delta. Returning an error from fn aborts the stream. The returned result
// carries the concatenated content and usage when the provider reports it.
func (c *Client) Stream(ctx context.Context, req CompletionRequest, fn func(delta string) error) (*CompletionResult, error) {
	body := map[string]any{
		"model":          c.resolveModel(req.Model),
		"messages":       req.Messages,
		"stream":         true,
		"stream_options": map[string]any{"include_usage": true},
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &CompletionResult{}
	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Usage *struct {
				TotalTokens int32 `json:"total_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			result.TotalTokens = chunk.Usage.TotalTokens
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			content.WriteString(choice.Delta.Content)
			if err := fn(choice.Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read completion stream")
	}
	result.Content = content.String()
	return result, nil
}

func (c *Client) post(ctx context.Context, body map[string]any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call model endpoint")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("model endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *Client) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return c.model
}
