package watch

import (
	"context"
	"fmt"

	"lookout/internal/platform"
	"lookout/pkg/logging"
)

type ResolverConfig struct {
	Client PlatformClient
	Logger logging.Logger
}

// Resolver determines whose account an event asks us to analyze: always the
// author of the post the trigger replied to, never the requester.
type Resolver struct {
	client PlatformClient
	logger logging.Logger
}

func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{client: cfg.Client, logger: cfg.Logger}
}

// Resolve returns the analysis target for an event. A *ResolutionError means
// the event can never have a target (top-level trigger, or the parent post
// or its author has been deleted); any other error is transient.
func (r *Resolver) Resolve(ctx context.Context, event TriggerEvent) (platform.AccountRecord, error) {
	if event.ParentPostID == "" {
		return platform.AccountRecord{}, &ResolutionError{Reason: "trigger post is not a reply"}
	}

	parent, err := r.client.GetPost(ctx, event.ParentPostID)
	if err != nil {
		if platform.IsNotFound(err) {
			return platform.AccountRecord{}, &ResolutionError{Reason: "parent post deleted or protected"}
		}
		return platform.AccountRecord{}, fmt.Errorf("fetch parent post: %w", err)
	}

	target, err := r.client.GetUser(ctx, parent.AuthorID)
	if err != nil {
		if platform.IsNotFound(err) {
			return platform.AccountRecord{}, &ResolutionError{Reason: "target account deleted or suspended"}
		}
		return platform.AccountRecord{}, fmt.Errorf("fetch target account: %w", err)
	}

	if r.logger != nil {
		r.logger.WithFields(logging.Fields{
			"event_id": event.EventID,
			"target":   target.Handle,
		}).Debug("Resolved analysis target")
	}
	return target, nil
}
