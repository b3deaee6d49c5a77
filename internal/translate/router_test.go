package translate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"transmux/internal/logging"
	"transmux/internal/services"
)

type stubEngine struct {
	name string
	fn   func(Request) (Result, error)

	mu    sync.Mutex
	calls int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Translate(_ context.Context, req Request) (Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(req)
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func goodEngine(name, text string) *stubEngine {
	return &stubEngine{name: name, fn: func(Request) (Result, error) {
		return Result{Text: text, Engine: name}, nil
	}}
}

func unavailableEngine(name string) *stubEngine {
	return &stubEngine{name: name, fn: func(Request) (Result, error) {
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "translate", name, "quota exhausted", nil)
	}}
}

func literalRequest() Request {
	return Request{Text: "the train departs at nine", SourceLang: "en", TargetLang: "es"}
}

func TestRouterAcceptsGoodPrimaryCandidate(t *testing.T) {
	fast := goodEngine("machine", "el tren sale a las nueve")
	creative := goodEngine("llm", "unused")
	router := NewRouter(logging.NewNop(), fast, creative, RouterConfig{})

	decision, err := router.TranslateSegment(context.Background(), literalRequest())
	if err != nil {
		t.Fatalf("TranslateSegment: %v", err)
	}
	if decision.State != StateFinal || decision.Engine != "machine" || decision.FallbackUsed {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if decision.Signals.NonEmpty != 1 || decision.Signals.LengthRatio == 0 {
		t.Fatalf("decision must carry the signal breakdown, got %+v", decision.Signals)
	}
	if creative.callCount() != 0 {
		t.Fatal("creative engine must not run for an accepted literal candidate")
	}
}

func TestRouterFallsBackExactlyOnceOnEmptyPrimary(t *testing.T) {
	fast := goodEngine("machine", "")
	creative := goodEngine("llm", "el tren sale a las nueve")
	router := NewRouter(logging.NewNop(), fast, creative, RouterConfig{})

	decision, err := router.TranslateSegment(context.Background(), literalRequest())
	if err != nil {
		t.Fatalf("TranslateSegment: %v", err)
	}
	if !decision.FallbackUsed || decision.Engine != "llm" || decision.State != StateFinal {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if fast.callCount() != 1 || creative.callCount() != 1 {
		t.Fatalf("engines ran fast=%d creative=%d, want 1 and 1", fast.callCount(), creative.callCount())
	}
}

func TestRouterKeepsWeakPrimaryWhenFallbackIsWorse(t *testing.T) {
	fast := goodEngine("machine", "si")
	creative := goodEngine("llm", "")
	router := NewRouter(logging.NewNop(), fast, creative, RouterConfig{})

	decision, err := router.TranslateSegment(context.Background(), literalRequest())
	if err != nil {
		t.Fatalf("TranslateSegment: %v", err)
	}
	if decision.Engine != "machine" || decision.Text != "si" {
		t.Fatalf("weak primary must survive a worse fallback: %+v", decision)
	}
	if !decision.FallbackUsed {
		t.Fatal("fallback attempt must be recorded")
	}
}

func TestRouterRoutesExpressiveSegmentsToCreativeEngine(t *testing.T) {
	fast := goodEngine("machine", "que")
	creative := goodEngine("llm", "¡¿Me estás tomando el pelo?!")
	router := NewRouter(logging.NewNop(), fast, creative, RouterConfig{})

	decision, err := router.TranslateSegment(context.Background(), Request{
		Text: "WOW! You're kidding me, right?!", SourceLang: "en", TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("TranslateSegment: %v", err)
	}
	if decision.Engine != "llm" {
		t.Fatalf("expressive segment routed to %q, want llm (%+v)", decision.Engine, decision)
	}
	if fast.callCount() != 0 {
		t.Fatal("machine engine must not run when the creative candidate is accepted")
	}
}

func TestRouterStickyUnavailabilityLogsOnce(t *testing.T) {
	fast := goodEngine("machine", "el tren sale a las nueve de la manana")
	creative := unavailableEngine("llm")

	var captured countingHandler
	router := NewRouter(slog.New(&captured), fast, creative, RouterConfig{})

	// Expressive segments route to the creative engine first; each attempt
	// fails authoritatively until the breaker trips.
	req := Request{Text: "WOW! You're kidding me, right?!", SourceLang: "en", TargetLang: "es"}
	for i := 0; i < 4; i++ {
		if _, err := router.TranslateSegment(context.Background(), req); err != nil {
			t.Fatalf("segment %d: %v", i, err)
		}
	}

	if router.Available("llm") {
		t.Fatal("creative engine must be sticky-unavailable after repeated authoritative failures")
	}
	if !router.Available("machine") {
		t.Fatal("machine engine must stay available")
	}
	// Two failures trip the breaker; later segments skip the engine entirely.
	if creative.callCount() != 2 {
		t.Fatalf("creative engine ran %d times, want 2", creative.callCount())
	}
	if got := captured.count("engine_unavailable_sticky"); got != 1 {
		t.Fatalf("sticky transition logged %d times, want exactly 1", got)
	}
}

func TestRouterErrorsWhenBothEnginesUnavailable(t *testing.T) {
	fast := unavailableEngine("machine")
	creative := unavailableEngine("llm")
	router := NewRouter(logging.NewNop(), fast, creative, RouterConfig{})

	// Trip both breakers.
	for i := 0; i < 2; i++ {
		_, _ = router.TranslateSegment(context.Background(), literalRequest())
	}
	_, err := router.TranslateSegment(context.Background(), literalRequest())
	if !errors.Is(err, services.ErrEngineUnavailable) {
		t.Fatalf("expected engine-unavailable marker, got %v", err)
	}
}

// countingHandler records event_type attribute values for log assertions.
type countingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, record slog.Record) error {
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == logging.FieldEventType {
			h.mu.Lock()
			h.events = append(h.events, attr.Value.String())
			h.mu.Unlock()
		}
		return true
	})
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *countingHandler) WithGroup(string) slog.Handler { return h }

func (h *countingHandler) count(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == event {
			n++
		}
	}
	return n
}
