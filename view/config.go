package view

import "time"

type BackendType string

const (
	BackendOpenAI    BackendType = "openai"
	BackendLangchain BackendType = "langchain"
	BackendOllama    BackendType = "ollama"
)

type BackendConfig struct {
	Backend    BackendType
	Credential string
	Model      string
	BaseURL    string
	// Timeout applies to each backend call separately.
	Timeout          time.Duration
	StructuredOutput bool
}
