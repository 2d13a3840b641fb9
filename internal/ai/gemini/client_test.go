package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/scholar-matcher/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
	chat    *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, history: history, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

type waitRecorder struct {
	delays []time.Duration
}

func (w *waitRecorder) wait(_ context.Context, d time.Duration) error {
	w.delays = append(w.delays, d)
	return nil
}

func newTestGenerator(chats chatCreator, maxRetries int, waits *waitRecorder) *Generator {
	return &Generator{
		chats:      chats,
		model:      "gemini-pro",
		maxRetries: maxRetries,
		logger:     zap.NewNop(),
		wait:       waits.wait,
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("retry ok"), nil)

	waits := &waitRecorder{}
	g := newTestGenerator(chats, 2, waits)

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	if len(waits.delays) != 1 || waits.delays[0] != baseRetryDelay {
		t.Fatalf("expected a single base delay, got %v", waits.delays)
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	waits := &waitRecorder{}
	g := newTestGenerator(chats, 2, waits)

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
	if len(waits.delays) != 1 {
		t.Fatalf("expected no wait after the last attempt, got %v", waits.delays)
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := newTestGenerator(chats, 3, &waitRecorder{})

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorWaitsShortQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Details: []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "7s"}},
	}
	chats.enqueue("gemini-pro", nil, quotaErr)
	chats.enqueue("gemini-pro", textResponse("after quota"), nil)

	waits := &waitRecorder{}
	g := newTestGenerator(chats, 3, waits)

	output, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "after quota" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(waits.delays) != 1 || waits.delays[0] != 7*time.Second {
		t.Fatalf("expected server suggested delay, got %v", waits.delays)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newTestGenerator(chats, 3, &waitRecorder{})

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for invalid request")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorConverseReplaysHistory(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("sure"), nil)

	g := newTestGenerator(chats, 1, &waitRecorder{})

	history := []ai.Turn{
		{Role: ai.RoleStudent, Text: "Hi"},
		{Role: ai.RoleAdvisor, Text: "Hello! How can I help?"},
	}
	if _, err := g.Converse(context.Background(), "", history, "Am I eligible?"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	call := chats.calls[0]
	if call.config.SystemInstruction != nil {
		t.Fatalf("expected no system instruction for blank system prompt")
	}
	if len(call.history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(call.history))
	}
	if string(call.history[0].Role) != "user" || string(call.history[1].Role) != "model" {
		t.Fatalf("unexpected history roles: %q, %q", call.history[0].Role, call.history[1].Role)
	}
}

func TestGeneratorRejectsEmptyMessage(t *testing.T) {
	g := newTestGenerator(newFakeChatCreator(), 1, &waitRecorder{})

	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}
