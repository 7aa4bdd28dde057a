package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sideai/internal/openai"
	"sideai/internal/settings"
)

// CompletionClient is the slice of the API client the sender needs.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (<-chan string, <-chan error, error)
	ChatCompletionSync(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

// Sender orchestrates one chat turn: settings validation, appending
// the user message, the API call, and appending the reply. At most one
// send runs at a time; concurrent attempts are dropped.
type Sender struct {
	mu      sync.Mutex
	sending bool

	store     *Store
	settings  *settings.Store
	newClient func(apiURL, apiKey string) CompletionClient
}

func NewSender(store *Store, settingsStore *settings.Store) *Sender {
	return &Sender{
		store:    store,
		settings: settingsStore,
		newClient: func(apiURL, apiKey string) CompletionClient {
			return openai.NewClient(apiURL, apiKey)
		},
	}
}

// Sending reports whether a send is currently in flight.
func (s *Sender) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Send runs a full chat turn with the active conversation. The user
// message is appended before the network call starts and is kept even
// when the call fails. onDelta, if non-nil, receives streamed text
// fragments in arrival order.
//
// Settings are validated first; nothing touches the network when a
// required one is missing. An API reply that trims to nothing is a
// failure, not an empty success.
func (s *Sender) Send(ctx context.Context, content string, onDelta func(delta string)) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.sending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	cfg, err := s.settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if ok, missing := cfg.Ready(); !ok {
		return &ConfigError{Missing: missing}
	}

	if err := s.store.AppendMessage(RoleUser, content); err != nil {
		return err
	}

	req := buildRequest(cfg, s.store.ActiveMessages())
	client := s.newClient(cfg.APIURL, cfg.APIKey)

	var reply string
	if cfg.Stream {
		reply, err = streamReply(ctx, client, req, onDelta)
	} else {
		reply, err = client.ChatCompletionSync(ctx, req)
	}
	if err != nil {
		return err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ErrEmptyResponse
	}

	return s.store.AppendMessage(RoleAssistant, reply)
}

// buildRequest assembles the payload: the active model, the full
// history, and only the generation parameters that are actually set.
func buildRequest(cfg *settings.Settings, history []Message) openai.ChatCompletionRequest {
	messages := make([]openai.ChatMessage, len(history))
	for i, message := range history {
		messages[i] = openai.ChatMessage{Role: message.Role, Content: message.Content}
	}
	return openai.ChatCompletionRequest{
		Model:            cfg.ActiveModel,
		Messages:         messages,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
	}
}

func streamReply(ctx context.Context, client CompletionClient, req openai.ChatCompletionRequest, onDelta func(string)) (string, error) {
	streamChan, errChan, err := client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for delta := range streamChan {
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := <-errChan; err != nil {
		return full.String(), err
	}
	return full.String(), nil
}
