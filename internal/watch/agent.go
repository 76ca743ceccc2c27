package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lookout/internal/analysis"
	"lookout/internal/events"
	"lookout/internal/platform"
	"lookout/pkg/llm"
	"lookout/pkg/logging"
)

const (
	defaultPollInterval       = 60 * time.Second
	defaultMaxPublishAttempts = 2
	maxAnalysisAttempts       = 2
)

// MentionSource yields new trigger events and the advanced watermark.
type MentionSource interface {
	Poll(ctx context.Context, watermark time.Time) ([]TriggerEvent, time.Time, error)
}

// TargetResolver maps an event to the account under analysis.
type TargetResolver interface {
	Resolve(ctx context.Context, event TriggerEvent) (platform.AccountRecord, error)
}

// ProfileAggregator assembles the analysis request for a target.
type ProfileAggregator interface {
	Aggregate(ctx context.Context, target platform.AccountRecord) (analysis.Request, error)
}

// Analyzer produces the trust verdict for a request.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

// ReplyPublisher posts verdict and fallback replies under the trigger post.
type ReplyPublisher interface {
	PublishVerdict(ctx context.Context, event TriggerEvent, handle string, result analysis.Result) (string, error)
	PublishFallback(ctx context.Context, event TriggerEvent, reason FallbackReason) (string, error)
}

// OutcomeSink receives the terminal disposition of each event.
type OutcomeSink interface {
	PublishOutcome(outcome events.Outcome) error
}

type AgentConfig struct {
	Source             MentionSource
	Resolver           TargetResolver
	Aggregator         ProfileAggregator
	Analyzer           Analyzer
	Publisher          ReplyPublisher
	Store              EventStore
	Outcomes           OutcomeSink
	Interval           time.Duration
	MaxPublishAttempts int
	Logger             logging.Logger
}

// Agent drives the poll/resolve/analyze/reply pipeline. It owns the rate
// limit response: when any stage reports a rate limit the current cycle
// stops, unprocessed events are left unclaimed for the next poll, and the
// next cycle is delayed with exponential backoff. Any successful cycle
// resets the backoff.
type Agent struct {
	source     MentionSource
	resolver   TargetResolver
	aggregator ProfileAggregator
	analyzer   Analyzer
	publisher  ReplyPublisher
	store      EventStore
	outcomes   OutcomeSink
	interval   time.Duration
	maxPublish int
	backoff    *backoff.ExponentialBackOff
	logger     logging.Logger
}

func NewAgent(cfg AgentConfig) *Agent {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxPublish := cfg.MaxPublishAttempts
	if maxPublish <= 0 {
		maxPublish = defaultMaxPublishAttempts
	}

	// Deterministic doubling so consecutive rate-limited cycles always wait
	// strictly longer, up to the cap.
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 15 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	return &Agent{
		source:     cfg.Source,
		resolver:   cfg.Resolver,
		aggregator: cfg.Aggregator,
		analyzer:   cfg.Analyzer,
		publisher:  cfg.Publisher,
		store:      cfg.Store,
		outcomes:   cfg.Outcomes,
		interval:   interval,
		maxPublish: maxPublish,
		backoff:    b,
		logger:     cfg.Logger,
	}
}

// Start runs poll cycles until ctx is cancelled. The delay between cycles is
// the configured interval, stretched by backoff while rate limited.
func (a *Agent) Start(ctx context.Context) {
	if a == nil {
		return
	}
	timer := time.NewTimer(a.runCycle(ctx))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(a.runCycle(ctx))
		}
	}
}

func (a *Agent) runCycle(ctx context.Context) (next time.Duration) {
	next = a.interval
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			if a.logger != nil {
				a.logger.WithField("panic", fmt.Sprint(r)).Error("Poll cycle panic")
			}
		}
	}()

	rateLimited := a.cycle(ctx)
	if rateLimited {
		next = a.backoff.NextBackOff()
		pollBackoffSeconds.Set(next.Seconds())
		if a.logger != nil {
			a.logger.WithField("delay", next.String()).Warn("Rate limited, backing off before next poll")
		}
		return next
	}

	a.backoff.Reset()
	pollBackoffSeconds.Set(a.interval.Seconds())
	return next
}

// cycle runs one full poll and reports whether it hit a rate limit.
func (a *Agent) cycle(ctx context.Context) bool {
	watermark, err := a.store.Watermark(ctx)
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Warn("Failed to load poll watermark")
		}
		return false
	}

	triggers, polled, err := a.source.Poll(ctx, watermark)
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(err).Warn("Mention poll failed")
		}
		return isRateLimited(err)
	}

	// Advance past events only once they are terminal. On an abort the
	// remaining events are still unclaimed and will be re-polled.
	advanceTo := watermark
	rateLimited := false
	for _, event := range triggers {
		if ctx.Err() != nil {
			break
		}
		if err := a.processEvent(ctx, event); err != nil {
			rateLimited = isRateLimited(err)
			if a.logger != nil {
				a.logger.WithError(err).WithField("event_id", event.EventID).Warn("Event processing aborted")
			}
			break
		}
		if event.ObservedAt.After(advanceTo) {
			advanceTo = event.ObservedAt
		}
	}

	if !rateLimited && ctx.Err() == nil {
		advanceTo = polled
	}
	if advanceTo.After(watermark) {
		if err := a.store.AdvanceWatermark(ctx, advanceTo); err != nil && a.logger != nil {
			a.logger.WithError(err).Warn("Failed to advance poll watermark")
		}
	}
	return rateLimited
}

// processEvent takes one event to a terminal state. A returned error aborts
// the cycle (store failures, rate limits); terminal per-event failures are
// handled internally and return nil.
func (a *Agent) processEvent(ctx context.Context, event TriggerEvent) error {
	claimed, err := a.store.Claim(ctx, event)
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		dedupSkipsTotal.Inc()
		return nil
	}

	target, err := a.resolver.Resolve(ctx, event)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			a.finishFailed(ctx, event, "", resErr.Reason, FallbackNoTarget)
			return nil
		}
		if isRateLimited(err) {
			return a.releaseClaim(ctx, event, err)
		}
		a.finishFailed(ctx, event, "", "target resolution failed", FallbackNoTarget)
		return nil
	}

	req, err := a.aggregator.Aggregate(ctx, target)
	if err != nil {
		if isRateLimited(err) {
			return a.releaseClaim(ctx, event, err)
		}
		a.finishFailed(ctx, event, target.Handle, "profile aggregation failed", FallbackNoTarget)
		return nil
	}

	result, err := a.analyze(ctx, req)
	if err != nil {
		if isRateLimited(err) {
			return a.releaseClaim(ctx, event, err)
		}
		a.finishFailed(ctx, event, target.Handle, "analysis failed", FallbackAnalysisUnavailable)
		return nil
	}

	replyID, err := a.publishVerdict(ctx, event, target.Handle, result)
	if err != nil {
		// No fallback and no release here: the reply may have been created
		// despite the error, and a second post would break at-most-once.
		a.finishFailed(ctx, event, target.Handle, "verdict publishing failed", "")
		if isRateLimited(err) {
			return err
		}
		return nil
	}

	a.finishDone(ctx, event, target.Handle, result, replyID)
	return nil
}

// analyze calls the model with one bounded retry. Rate limits are never
// retried here; they go straight to the backoff path.
func (a *Agent) analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAnalysisAttempts; attempt++ {
		result, err := a.analyzer.Analyze(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if isRateLimited(err) || ctx.Err() != nil {
			break
		}
		if a.logger != nil {
			a.logger.WithError(err).WithField("attempt", attempt).Warn("Analysis attempt failed")
		}
	}
	return analysis.Result{}, lastErr
}

// publishVerdict posts the reply with bounded attempts. Only clean API
// rejections are retried; an ambiguous failure (timeout, connection drop)
// stops immediately because the reply may already exist.
func (a *Agent) publishVerdict(ctx context.Context, event TriggerEvent, handle string, result analysis.Result) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxPublish; attempt++ {
		replyID, err := a.publisher.PublishVerdict(ctx, event, handle, result)
		if err == nil {
			return replyID, nil
		}
		lastErr = err
		var apiErr *platform.APIError
		if !errors.As(err, &apiErr) || isRateLimited(err) || ctx.Err() != nil {
			break
		}
		if a.logger != nil {
			a.logger.WithError(err).WithField("attempt", attempt).Warn("Verdict publish attempt failed")
		}
	}
	return "", lastErr
}

func (a *Agent) finishDone(ctx context.Context, event TriggerEvent, handle string, result analysis.Result, replyID string) {
	if err := a.store.MarkDone(ctx, event.EventID, result.Signal); err != nil && a.logger != nil {
		a.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to mark event done")
	}
	eventsTotal.WithLabelValues(StatusDone).Inc()
	repliesTotal.WithLabelValues("verdict").Inc()

	if a.logger != nil {
		a.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"target":   handle,
			"signal":   result.Signal,
		}).Info("Trust analysis published")
	}
	a.emitOutcome(events.Outcome{
		EventID:         event.EventID,
		RequesterID:     event.RequesterID,
		TargetHandle:    handle,
		Status:          StatusDone,
		Signal:          result.Signal,
		TemplateVersion: result.TemplateVersion,
		ReplyID:         replyID,
		CompletedAt:     time.Now().UTC(),
	})
}

// releaseClaim undoes a claim after a pre-publish rate limit so the event is
// re-polled once the limit lifts, and returns err to abort the cycle.
func (a *Agent) releaseClaim(ctx context.Context, event TriggerEvent, err error) error {
	if releaseErr := a.store.Release(ctx, event.EventID); releaseErr != nil {
		if a.logger != nil {
			a.logger.WithError(releaseErr).WithField("event_id", event.EventID).Error("Failed to release claim")
		}
		return releaseErr
	}
	if a.logger != nil {
		a.logger.WithField("event_id", event.EventID).Debug("Claim released for retry after rate limit")
	}
	return err
}

// finishFailed drives an event to its failed terminal state, posting a
// best-effort fallback reply first when a reason is given.
func (a *Agent) finishFailed(ctx context.Context, event TriggerEvent, handle, detail string, fallback FallbackReason) {
	replyID := ""
	if fallback != "" {
		id, err := a.publisher.PublishFallback(ctx, event, fallback)
		if err != nil {
			if a.logger != nil {
				a.logger.WithError(err).WithField("event_id", event.EventID).Warn("Fallback reply failed")
			}
		} else {
			replyID = id
			repliesTotal.WithLabelValues("fallback").Inc()
		}
	}

	if err := a.store.MarkFailed(ctx, event.EventID, detail); err != nil && a.logger != nil {
		a.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to mark event failed")
	}
	eventsTotal.WithLabelValues(StatusFailed).Inc()

	if a.logger != nil {
		a.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"detail":   detail,
		}).Info("Event closed without verdict")
	}
	a.emitOutcome(events.Outcome{
		EventID:      event.EventID,
		RequesterID:  event.RequesterID,
		TargetHandle: handle,
		Status:       StatusFailed,
		Detail:       detail,
		ReplyID:      replyID,
		CompletedAt:  time.Now().UTC(),
	})
}

func (a *Agent) emitOutcome(outcome events.Outcome) {
	if a.outcomes == nil {
		return
	}
	if err := a.outcomes.PublishOutcome(outcome); err != nil && a.logger != nil {
		a.logger.WithError(err).WithField("event_id", outcome.EventID).Warn("Failed to publish outcome event")
	}
}

func isRateLimited(err error) bool {
	return platform.IsRateLimited(err) || errors.Is(err, llm.ErrRateLimited)
}
