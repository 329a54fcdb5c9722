package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MilkTeaCat52/INVSC/view"
	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"
)

const DefaultOllamaURL = "http://localhost:11434"
const DefaultOllamaModel = "llama3.1"

func NewOllamaClient(apiKey string, model string, ollamaUrl string) LLMClient {
	if ollamaUrl == "" {
		ollamaUrl = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	client := resty.NewWithClient(&http.Client{})

	return &ollamaClientImpl{
		ollamaUrl: strings.TrimSuffix(ollamaUrl, "/"),
		apiKey:    apiKey,
		model:     model,
		client:    client,
	}
}

type ollamaClientImpl struct {
	ollamaUrl string
	apiKey    string
	model     string
	client    *resty.Client
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []view.Message         `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   interface{}            `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message view.Message `json:"message"`
	Done    bool         `json:"done"`
	Error   string       `json:"error,omitempty"`
}

func (o ollamaClientImpl) Send(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error) {
	start := time.Now()

	body := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]interface{}{"temperature": opts.Temperature},
	}
	if opts.Format == view.FormatJSON {
		if opts.Schema != nil {
			body.Format = opts.Schema
		} else {
			body.Format = "json"
		}
	}

	log.Debugf("run chat with ollama client, model %s, %d messages", o.model, len(messages))

	req := o.makeRequest(ctx)
	req.SetBody(body)
	resp, err := req.Post(fmt.Sprintf("%s/api/chat", o.ollamaUrl))
	log.Debugf("finished chat with ollama client, it took %dms", time.Since(start).Milliseconds())
	if err != nil {
		return "", fmt.Errorf("failed to send chat request to %s: %w", o.ollamaUrl, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return "", fmt.Errorf("ollama rejected credential: status code %d", resp.StatusCode())
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("failed to chat with ollama: status code %d %s", resp.StatusCode(), string(resp.Body()))
	}

	var chat ollamaChatResponse
	if err = json.Unmarshal(resp.Body(), &chat); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if chat.Error != "" {
		return "", errors.New("ollama: " + chat.Error)
	}
	if !chat.Done {
		return "", errors.New("ollama: incomplete response")
	}
	return chat.Message.Content, nil
}

func (o ollamaClientImpl) makeRequest(ctx context.Context) *resty.Request {
	req := o.client.R()
	req.SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if o.apiKey != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	}
	return req
}
