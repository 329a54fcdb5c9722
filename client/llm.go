package client

import (
	"context"
	"strings"

	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/invopop/jsonschema"
)

// LLMClient sends an ordered conversation to a model backend and returns the
// text of the reply.
type LLMClient interface {
	Send(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error)
}

// ClientFactory builds a backend adapter for a configuration.
type ClientFactory func(cfg view.BackendConfig) (LLMClient, error)

func NewLLMClient(cfg view.BackendConfig) (LLMClient, error) {
	switch view.BackendType(strings.ToLower(string(cfg.Backend))) {
	case view.BackendOpenAI, "":
		return NewOpenaiClient(cfg.Credential, cfg.Model, cfg.BaseURL)
	case view.BackendLangchain:
		return NewLangchainClient(cfg.Credential, cfg.Model, cfg.BaseURL)
	case view.BackendOllama:
		return NewOllamaClient(cfg.Credential, cfg.Model, cfg.BaseURL), nil
	}
	return nil, &exception.CustomError{
		Code:    exception.UnknownBackend,
		Message: exception.UnknownBackendMsg,
		Params:  map[string]interface{}{"backend": cfg.Backend},
	}
}

var JudgementResponseSchema = GenerateSchema[view.JudgementPayload]()

func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}
