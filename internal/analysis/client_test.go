package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lookout/pkg/llm"
)

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) Complete(_ context.Context, messages []llm.Message) (string, error) {
	for _, m := range messages {
		if m.Role == "user" {
			f.prompts = append(f.prompts, m.Content)
		}
	}
	return f.response, f.err
}

func testRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		Target: TargetAccount{
			ID:        "42",
			Handle:    "solbuilder",
			Bio:       "Building things",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Followers: 100,
			Following: 50,
		},
		Samples: []Post{{ID: "1", Text: "hello"}},
	}
}

func newTestClient(t *testing.T, provider llm.Provider) *Client {
	t.Helper()
	builder, err := NewPromptBuilder("", "", nil)
	if err != nil {
		t.Fatalf("NewPromptBuilder failed: %v", err)
	}
	return NewClient(ClientConfig{
		Provider: provider,
		Builder:  builder,
		Timeout:  time.Second,
	})
}

func TestAnalyzeExtractsVerdict(t *testing.T) {
	provider := &fakeProvider{
		response: "The account posts regularly about its project and engages genuinely.\nTrust Signal: Positive",
	}
	client := newTestClient(t, provider)

	result, err := client.Analyze(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Signal != "Positive" {
		t.Errorf("expected signal Positive, got %q", result.Signal)
	}
	if result.LowConfidence {
		t.Error("expected full-confidence result")
	}
	if strings.Contains(result.Summary, "Trust Signal") {
		t.Errorf("signal line should be stripped from summary: %q", result.Summary)
	}
	if result.TemplateVersion != DefaultTemplateVersion {
		t.Errorf("expected result stamped with template version %q, got %q", DefaultTemplateVersion, result.TemplateVersion)
	}
	if len(provider.prompts) != 1 || !strings.Contains(provider.prompts[0], "@solbuilder") {
		t.Errorf("expected one rendered prompt mentioning the target, got %v", provider.prompts)
	}
}

func TestAnalyzeDefaultsToNeutralWhenNoLabel(t *testing.T) {
	provider := &fakeProvider{response: "This account seems unremarkable either way."}
	client := newTestClient(t, provider)

	result, err := client.Analyze(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Signal != DefaultSignal {
		t.Errorf("expected default signal %q, got %q", DefaultSignal, result.Signal)
	}
	if !result.LowConfidence {
		t.Error("expected low-confidence flag when no label was extracted")
	}
}

func TestAnalyzePropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{err: llm.ErrRateLimited}
	client := newTestClient(t, provider)

	_, err := client.Analyze(context.Background(), testRequest(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Errorf("expected rate-limit sentinel to survive wrapping, got %v", err)
	}
}

func TestAnalyzeRejectsEmptySummary(t *testing.T) {
	provider := &fakeProvider{response: "Trust Signal: Caution"}
	client := newTestClient(t, provider)

	_, err := client.Analyze(context.Background(), testRequest(t))
	if err == nil {
		t.Fatal("expected error for label-only output")
	}
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestAnalyzeRequiresProvider(t *testing.T) {
	client := newTestClient(t, nil)
	if _, err := client.Analyze(context.Background(), testRequest(t)); err == nil {
		t.Fatal("expected error when provider is nil")
	}
}
