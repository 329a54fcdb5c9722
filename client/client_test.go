package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/MilkTeaCat52/INVSC/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
}`

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]interface{}
	Header http.Header
}

func newChatServer(t *testing.T, status int, reply string, calls *int32, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		data, _ := io.ReadAll(r.Body)
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		captured.Header = r.Header.Clone()
		captured.Body = map[string]interface{}{}
		_ = json.Unmarshal(data, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
}

func conversation() []view.Message {
	return []view.Message{
		{Role: view.RoleSystem, Content: "you are an examiner"},
		{Role: view.RoleUser, Content: "analyse this"},
		{Role: view.RoleAssistant, Content: "the invariant fails for x=2"},
		{Role: view.RoleUser, Content: "now grade it"},
	}
}

func roles(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	raw, ok := body["messages"].([]interface{})
	require.True(t, ok, "messages missing from request body")
	var res []string
	for _, m := range raw {
		res = append(res, m.(map[string]interface{})["role"].(string))
	}
	return res
}

func TestOpenaiClient_SendsConversationAndJSONFormat(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, strings.Replace(chatCompletionReply, "%q", `"{\"grade\":\"alpha\"}"`, 1), &calls, &captured)
	defer srv.Close()

	cl, err := NewOpenaiClient("sk-test", "gpt-4o-mini", srv.URL+"/v1/")
	require.NoError(t, err)

	out, err := cl.Send(context.Background(), conversation(), view.SendOptions{Temperature: 0.1, Format: view.FormatJSON})
	require.NoError(t, err)

	assert.Equal(t, `{"grade":"alpha"}`, out)
	assert.True(t, strings.HasSuffix(captured.Path, "/chat/completions"))
	assert.Equal(t, "Bearer sk-test", captured.Auth)
	assert.Equal(t, "gpt-4o-mini", captured.Body["model"])
	assert.InDelta(t, 0.1, captured.Body["temperature"], 1e-9)
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles(t, captured.Body))
	format := captured.Body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenaiClient_SchemaFormat(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, strings.Replace(chatCompletionReply, "%q", `"{}"`, 1), &calls, &captured)
	defer srv.Close()

	cl, err := NewOpenaiClient("sk-test", "", srv.URL+"/v1/")
	require.NoError(t, err)

	_, err = cl.Send(context.Background(), conversation(), view.SendOptions{
		Format:     view.FormatJSON,
		SchemaName: "judgement",
		Schema:     JudgementResponseSchema,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, captured.Body["model"])
	format := captured.Body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]interface{})
	assert.Equal(t, "judgement", schema["name"])
}

func TestOpenaiClient_TextFormatOmitsResponseFormat(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, strings.Replace(chatCompletionReply, "%q", `"prose"`, 1), &calls, &captured)
	defer srv.Close()

	cl, err := NewOpenaiClient("sk-test", "", srv.URL+"/v1/")
	require.NoError(t, err)

	out, err := cl.Send(context.Background(), conversation()[:2], view.SendOptions{Temperature: 0.2, Format: view.FormatText})
	require.NoError(t, err)
	assert.Equal(t, "prose", out)
	_, present := captured.Body["response_format"]
	assert.False(t, present)
}

func TestOpenaiClient_ErrorIsNotRetried(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`, &calls, &captured)
	defer srv.Close()

	cl, err := NewOpenaiClient("sk-test", "", srv.URL+"/v1/")
	require.NoError(t, err)

	_, err = cl.Send(context.Background(), conversation(), view.SendOptions{})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenaiClient_RequiresKey(t *testing.T) {
	_, err := NewOpenaiClient("", "", "")
	assert.Error(t, err)
}

func TestLangchainClient_SendsConversation(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, strings.Replace(chatCompletionReply, "%q", `"{\"grade\":\"beta\"}"`, 1), &calls, &captured)
	defer srv.Close()

	cl, err := NewLangchainClient("sk-test", "gpt-4o", srv.URL+"/v1")
	require.NoError(t, err)

	out, err := cl.Send(context.Background(), conversation(), view.SendOptions{Temperature: 0.1, Format: view.FormatJSON})
	require.NoError(t, err)

	assert.Equal(t, `{"grade":"beta"}`, out)
	assert.True(t, strings.HasSuffix(captured.Path, "/chat/completions"))
	assert.Equal(t, "Bearer sk-test", captured.Auth)
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles(t, captured.Body))
	format := captured.Body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_object", format["type"])
}

func TestLangchainClient_RequiresKey(t *testing.T) {
	_, err := NewLangchainClient("", "", "")
	assert.Error(t, err)
}

func TestOllamaClient_Send(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, `{"model":"llama3.1","message":{"role":"assistant","content":"{\"grade\":\"gamma\"}"},"done":true}`, &calls, &captured)
	defer srv.Close()

	cl := NewOllamaClient("secret", "", srv.URL+"/")
	out, err := cl.Send(context.Background(), conversation(), view.SendOptions{Temperature: 0.1, Format: view.FormatJSON})
	require.NoError(t, err)

	assert.Equal(t, `{"grade":"gamma"}`, out)
	assert.Equal(t, "/api/chat", captured.Path)
	assert.Equal(t, "Bearer secret", captured.Auth)
	assert.Equal(t, DefaultOllamaModel, captured.Body["model"])
	assert.Equal(t, false, captured.Body["stream"])
	assert.Equal(t, "json", captured.Body["format"])
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles(t, captured.Body))
	options := captured.Body["options"].(map[string]interface{})
	assert.InDelta(t, 0.1, options["temperature"], 1e-9)
}

func TestOllamaClient_SchemaFormat(t *testing.T) {
	var calls int32
	var captured capturedRequest
	srv := newChatServer(t, http.StatusOK, `{"message":{"role":"assistant","content":"{}"},"done":true}`, &calls, &captured)
	defer srv.Close()

	cl := NewOllamaClient("secret", "qwen2.5", srv.URL)
	_, err := cl.Send(context.Background(), conversation(), view.SendOptions{Format: view.FormatJSON, Schema: JudgementResponseSchema})
	require.NoError(t, err)

	format, ok := captured.Body["format"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, format, "properties")
}

func TestOllamaClient_Errors(t *testing.T) {
	var calls int32
	var captured capturedRequest

	unauthorized := newChatServer(t, http.StatusUnauthorized, `{"error":"unauthorized"}`, &calls, &captured)
	defer unauthorized.Close()
	_, err := NewOllamaClient("bad", "", unauthorized.URL).Send(context.Background(), conversation(), view.SendOptions{})
	assert.ErrorContains(t, err, "credential")

	partial := newChatServer(t, http.StatusOK, `{"message":{"role":"assistant","content":"{\"gra"},"done":false}`, &calls, &captured)
	defer partial.Close()
	_, err = NewOllamaClient("key", "", partial.URL).Send(context.Background(), conversation(), view.SendOptions{})
	assert.ErrorContains(t, err, "incomplete")
}

func TestNewLLMClient_SelectsBackend(t *testing.T) {
	cl, err := NewLLMClient(view.BackendConfig{Credential: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OAIClientImpl{}, cl)

	cl, err = NewLLMClient(view.BackendConfig{Backend: "Langchain", Credential: "k"})
	require.NoError(t, err)
	assert.IsType(t, &langchainClientImpl{}, cl)

	cl, err = NewLLMClient(view.BackendConfig{Backend: view.BackendOllama, Credential: "k"})
	require.NoError(t, err)
	assert.IsType(t, &ollamaClientImpl{}, cl)

	_, err = NewLLMClient(view.BackendConfig{Backend: "carrier-pigeon", Credential: "k"})
	assert.True(t, exception.HasCode(err, exception.UnknownBackend))
}

func TestJudgementResponseSchema_ListsGrades(t *testing.T) {
	data, err := json.Marshal(JudgementResponseSchema)
	require.NoError(t, err)
	for _, g := range view.AllGrades() {
		assert.Contains(t, string(data), `"`+g.String()+`"`)
	}
}
