package watch

import (
	"context"
	"fmt"
	"strings"

	"lookout/internal/analysis"
	"lookout/pkg/logging"
)

const defaultReplyMaxLength = 280

// FallbackReason selects the text of a fallback reply. Each failure class
// gets its own message so the requester knows whether the target was the
// problem or the analysis itself.
type FallbackReason string

const (
	FallbackNoTarget            FallbackReason = "no_target"
	FallbackAnalysisUnavailable FallbackReason = "analysis_unavailable"
)

const (
	fallbackNoTargetText = "I could not identify the account this request points at, so no trust analysis was possible."
	fallbackAnalysisText = "The trust analysis for this post is unavailable right now. Please try again later."
)

type PublisherConfig struct {
	Client    PlatformClient
	MaxLength int
	Logger    logging.Logger
}

// Publisher formats verdicts into replies and posts them under the trigger
// post. The trust-signal line is never sacrificed to the length limit; the
// summary is what gets truncated.
type Publisher struct {
	client    PlatformClient
	maxLength int
	logger    logging.Logger
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = defaultReplyMaxLength
	}
	return &Publisher{
		client:    cfg.Client,
		maxLength: maxLength,
		logger:    cfg.Logger,
	}
}

// PublishVerdict posts the analysis result as a reply to the trigger post
// and returns the created reply's ID.
func (p *Publisher) PublishVerdict(ctx context.Context, event TriggerEvent, handle string, result analysis.Result) (string, error) {
	text := p.formatVerdict(handle, result)
	replyID, err := p.client.PostReply(ctx, event.TriggerPost, text)
	if err != nil {
		return "", fmt.Errorf("publish verdict: %w", err)
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"reply_id": replyID,
			"signal":   result.Signal,
		}).Info("Verdict reply posted")
	}
	return replyID, nil
}

// PublishFallback posts a short apology reply when the pipeline could not
// produce a verdict, worded for the failure class. Fallback replies carry no
// trust signal.
func (p *Publisher) PublishFallback(ctx context.Context, event TriggerEvent, reason FallbackReason) (string, error) {
	text := fallbackAnalysisText
	if reason == FallbackNoTarget {
		text = fallbackNoTargetText
	}
	replyID, err := p.client.PostReply(ctx, event.TriggerPost, text)
	if err != nil {
		return "", fmt.Errorf("publish fallback: %w", err)
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"reason":   string(reason),
		}).Info("Fallback reply posted")
	}
	return replyID, nil
}

func (p *Publisher) formatVerdict(handle string, result analysis.Result) string {
	header := fmt.Sprintf("Trust analysis for @%s:", handle)
	signalLine := fmt.Sprintf("Trust Signal: %s", result.Signal)

	// Budget for the summary is whatever the header and signal line leave.
	budget := p.maxLength - len([]rune(header)) - len([]rune(signalLine)) - 2
	if budget < 0 {
		budget = 0
	}
	summary := strings.TrimSpace(result.Summary)
	if len([]rune(summary)) > budget {
		if budget <= 1 {
			summary = ""
		} else {
			summary = truncateAtWord(summary, budget-1) + "…"
		}
	}

	if summary == "" {
		return header + "\n" + signalLine
	}
	return header + "\n" + summary + "\n" + signalLine
}

// truncateAtWord cuts s to at most maxLen runes, preferring the last word
// boundary when one exists in the second half of the cut.
func truncateAtWord(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	truncated := string(runes[:maxLen])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		return strings.TrimSpace(truncated[:lastSpace])
	}
	return truncated
}
