package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIChat(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"  Well met, traveller.  "},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "sk-test", srv.URL+"/", "gpt-4o-mini")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleSystem, Content: "be Grak"}, {Role: RoleUser, Content: "hi"}},
		Options:  map[string]any{OptMaxTokens: 200, OptTemperature: 0.8},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "  Well met, traveller.  " {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 17 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("request = %+v", got)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 200 || got.Temperature == nil || *got.Temperature != 0.8 {
		t.Errorf("options not forwarded: %+v", got)
	}
}

func TestOpenAIChatNullContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":null},"finish_reason":"content_filter"}]}`))
	}))
	defer srv.Close()

	resp, err := NewOpenAIProvider("openai", "", srv.URL, "m").Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "" || resp.FinishReason != "content_filter" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAIChatRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "", srv.URL, "m").WithRetry(RetryConfig{Attempts: 3, MinDelay: time.Millisecond})
	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 2 {
		t.Errorf("content %q after %d calls", resp.Content, calls.Load())
	}
}

func TestOpenAIChatClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "", srv.URL, "m").WithRetry(RetryConfig{Attempts: 3, MinDelay: time.Millisecond})
	_, err := p.Chat(context.Background(), ChatRequest{})
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want HTTPError 401", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryDoStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryDo(ctx, RetryConfig{Attempts: 5, MinDelay: time.Hour}, func() (int, error) {
		calls++
		cancel()
		return 0, &HTTPError{Status: 500}
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v after %d calls, want context.Canceled after 1", err, calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{"Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitSystem(t *testing.T) {
	sys, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
	})
	if sys != "a\n\nb" || len(rest) != 1 || rest[0].Content != "u" {
		t.Errorf("splitSystem = %q, %+v", sys, rest)
	}
}
