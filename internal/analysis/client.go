package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lookout/pkg/llm"
	"lookout/pkg/logging"
)

const defaultCallTimeout = 30 * time.Second

const systemPrompt = `You are a careful, neutral analyst. Follow the output format exactly and do not be conversational.`

// Client sends rendered prompts to the language model and parses the verdict.
// It performs no retries itself; the orchestrator owns the retry policy.
type Client struct {
	provider llm.Provider
	builder  *PromptBuilder
	labels   []string
	timeout  time.Duration
	logger   logging.Logger
}

type ClientConfig struct {
	Provider llm.Provider
	Builder  *PromptBuilder
	Labels   []string
	Timeout  time.Duration
	Logger   logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = DefaultTrustSignals
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		provider: cfg.Provider,
		builder:  cfg.Builder,
		labels:   labels,
		timeout:  timeout,
		logger:   cfg.Logger,
	}
}

// Analyze renders the request, calls the model once, and extracts the
// summary plus trust-signal label. Missing labels default to Neutral with
// the result flagged low-confidence.
func (c *Client) Analyze(ctx context.Context, req Request) (Result, error) {
	if c.provider == nil {
		return Result{}, errors.New("analysis: LLM provider not configured")
	}

	if req.TemplateVersion == "" {
		req.TemplateVersion = c.builder.Version()
	}
	prompt, err := c.builder.Render(req)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.provider.Complete(callCtx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	llmCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		llmCallsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("analysis: model call failed: %w", err)
	}
	llmCallsTotal.WithLabelValues("ok").Inc()

	result := Result{Summary: StripSignalLine(raw), TemplateVersion: req.TemplateVersion}
	if signal, found := ExtractSignal(raw, c.labels); found {
		result.Signal = signal
	} else {
		result.Signal = DefaultSignal
		result.LowConfidence = true
		if c.logger != nil {
			c.logger.WithField("handle", req.Target.Handle).Warn("No trust signal found in model output; defaulting to Neutral")
		}
	}
	if result.Summary == "" {
		return Result{}, fmt.Errorf("analysis: %w", llm.ErrEmptyCompletion)
	}
	return result, nil
}
