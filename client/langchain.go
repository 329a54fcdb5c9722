package client

import (
	"context"
	"errors"
	"time"

	"github.com/MilkTeaCat52/INVSC/view"
	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewLangchainClient talks to any OpenAI-compatible endpoint through
// langchaingo.
func NewLangchainClient(apiKey string, model string, baseURL string) (LLMClient, error) {
	if apiKey == "" {
		return nil, errors.New("langchain: api key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &langchainClientImpl{llm: llm, model: model}, nil
}

type langchainClientImpl struct {
	llm   llms.Model
	model string
}

func (l langchainClientImpl) Send(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error) {
	start := time.Now()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toLangchainRole(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.Format == view.FormatJSON {
		if opts.Schema != nil {
			log.Debugf("langchain backend does not support response schemas, falling back to json mode")
		}
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	log.Debugf("run chat completion with langchain client, model %s, %d messages", l.model, len(messages))

	resp, err := l.llm.GenerateContent(ctx, content, callOpts...)
	log.Debugf("finished chat completion with langchain client, it took %dms", time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("langchain: no completion returned")
	}
	return resp.Choices[0].Content, nil
}

func toLangchainRole(role view.Role) llms.ChatMessageType {
	switch role {
	case view.RoleSystem:
		return llms.ChatMessageTypeSystem
	case view.RoleAssistant:
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
