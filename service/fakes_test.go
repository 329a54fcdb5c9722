package service

import (
	"context"
	"errors"
	"sync"

	"github.com/MilkTeaCat52/INVSC/client"
	"github.com/MilkTeaCat52/INVSC/view"
)

type sentCall struct {
	Messages []view.Message
	Opts     view.SendOptions
}

// fakeLLM answers calls from a queue of replies and records what it was sent.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []sentCall
	onSend  func(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error)
}

func (f *fakeLLM) Send(ctx context.Context, messages []view.Message, opts view.SendOptions) (string, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, sentCall{Messages: append([]view.Message(nil), messages...), Opts: opts})
	f.mu.Unlock()

	if f.onSend != nil {
		return f.onSend(ctx, messages, opts)
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx >= len(f.replies) {
		return "", errors.New("fakeLLM: no reply queued")
	}
	return f.replies[idx], nil
}

func (f *fakeLLM) Calls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

type fakeFactory struct {
	llm     client.LLMClient
	err     error
	mu      sync.Mutex
	invoked int
}

func (f *fakeFactory) Build(cfg view.BackendConfig) (client.LLMClient, error) {
	f.mu.Lock()
	f.invoked++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.llm, nil
}

func testConfig() view.BackendConfig {
	return view.BackendConfig{Backend: view.BackendOpenAI, Credential: "sk-test", Model: "gpt-4o"}
}
