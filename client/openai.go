package client

import (
	"context"
	"errors"
	"time"

	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	log "github.com/sirupsen/logrus"
)

const DefaultOpenAIModel = "gpt-4o"

func NewOpenaiClient(apiKey string, model string, baseURL string) (LLMClient, error) {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		return nil, errors.New("openai: api key is required")
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	// a retried grading call may come back with a different verdict
	opts = append(opts, option.WithMaxRetries(0))

	var openAIModel openai.ChatModel
	if model != "" {
		openAIModel = model
	} else {
		openAIModel = DefaultOpenAIModel
	}

	return &OAIClientImpl{
		client: openai.NewClient(opts...),
		model:  openAIModel,
	}, nil
}

type OAIClientImpl struct {
	client openai.Client
	model  openai.ChatModel
}

func (l OAIClientImpl) Send(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Messages:    toOpenaiMessages(messages),
		Model:       l.model,
		Temperature: openai.Float(opts.Temperature),
	}

	if opts.Format == view.FormatJSON {
		if opts.Schema != nil {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   opts.SchemaName,
						Schema: opts.Schema,
						Strict: openai.Bool(false),
					},
				},
			}
		} else {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			}
		}
	}

	log.Debugf("run chat completion with openai client, model %s, %d messages", l.model, len(messages))

	chat, err := l.client.Chat.Completions.New(ctx, params)
	log.Debugf("finished chat completion with openai client, it took %dms", time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("openai: no completion returned")
	}

	return chat.Choices[0].Message.Content, nil
}

func toOpenaiMessages(messages []view.Message) []openai.ChatCompletionMessageParamUnion {
	res := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case view.RoleSystem:
			res = append(res, openai.SystemMessage(m.Content))
		case view.RoleAssistant:
			res = append(res, openai.AssistantMessage(m.Content))
		default:
			res = append(res, openai.UserMessage(m.Content))
		}
	}
	return res
}
