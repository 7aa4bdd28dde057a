package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatMessage is one turn of a conversation on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body for /chat/completions.
// Optional parameters are pointers so that unset values are omitted
// from the JSON entirely instead of being sent as zero.
type ChatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Stream           bool          `json:"stream,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message,omitempty"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// ChatCompletion performs a streaming completion request. Deltas are
// delivered on the returned channel in arrival order; the channel is
// closed when the stream ends. A read or protocol failure arrives on
// the error channel.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (<-chan string, <-chan error, error) {
	req.Stream = true

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make chat completion request: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, nil, errorFromResponse(resp)
	}

	streamChan := make(chan string, 10)
	errChan := make(chan error, 1)

	go func() {
		defer resp.Body.Close()
		defer close(streamChan)
		defer close(errChan)

		_, err := DecodeStream(resp.Body, func(delta string) {
			select {
			case streamChan <- delta:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errChan <- err
		}
	}()

	return streamChan, errChan, nil
}

// ChatCompletionSync performs a non-streaming completion request and
// returns the trimmed assistant message content.
func (c *Client) ChatCompletionSync(ctx context.Context, req ChatCompletionRequest) (string, error) {
	req.Stream = false

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to make chat completion request: %w", err)
	}

	if resp.StatusCode != 200 {
		return "", errorFromResponse(resp)
	}
	defer resp.Body.Close()

	var completionResp ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return "", fmt.Errorf("failed to decode chat completion response: %w", err)
	}

	if len(completionResp.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(completionResp.Choices[0].Message.Content), nil
}

// Verify issues a minimal one-token completion to confirm the endpoint,
// key and model work together. One attempt, no retries.
func (c *Client) Verify(ctx context.Context, model string) error {
	one := 1
	zero := 0.0
	req := ChatCompletionRequest{
		Model:       model,
		Messages:    []ChatMessage{{Role: "user", Content: "ping"}},
		MaxTokens:   &one,
		Temperature: &zero,
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}

	if resp.StatusCode != 200 {
		return errorFromResponse(resp)
	}
	resp.Body.Close()

	return nil
}
