package translate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"transmux/internal/services"
	"transmux/internal/translate"
)

func TestLLMTranslateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hola"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(server.Close)

	engine := translate.NewLLMEngine(translate.LLMConfig{APIKey: "key", BaseURL: server.URL, Model: "m"})
	result, err := engine.Translate(context.Background(), translate.Request{
		Text: "hello", SourceLang: "en", TargetLang: "es",
		Hints: []translate.Hint{{Source: "bombay", Translation: "mumbai"}},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.Text != "hola" || result.Engine != "llm" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestLLMTranslateRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hola"}}]}`))
	}))
	t.Cleanup(server.Close)

	engine := translate.NewLLMEngine(
		translate.LLMConfig{APIKey: "key", BaseURL: server.URL, Model: "m"},
		translate.WithLLMSleeper(func(time.Duration) {}),
	)
	result, err := engine.Translate(context.Background(), translate.Request{Text: "hello", TargetLang: "es"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.Text != "hola" {
		t.Fatalf("unexpected result %+v", result)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hit %d times, want 2", hits.Load())
	}
}

func TestLLMTranslateDoesNotRetryAuthFailure(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	engine := translate.NewLLMEngine(
		translate.LLMConfig{APIKey: "key", BaseURL: server.URL, Model: "m"},
		translate.WithLLMSleeper(func(time.Duration) {}),
	)
	_, err := engine.Translate(context.Background(), translate.Request{Text: "hello", TargetLang: "es"})
	if !errors.Is(err, services.ErrEngineUnavailable) {
		t.Fatalf("expected engine-unavailable marker, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("authoritative failure hit server %d times, want 1", hits.Load())
	}
}

func TestLLMTranslateUnconfigured(t *testing.T) {
	engine := translate.NewLLMEngine(translate.LLMConfig{})
	_, err := engine.Translate(context.Background(), translate.Request{Text: "hello"})
	if !errors.Is(err, services.ErrEngineUnavailable) {
		t.Fatalf("expected engine-unavailable marker, got %v", err)
	}
}
