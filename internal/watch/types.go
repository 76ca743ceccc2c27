package watch

import (
	"context"
	"fmt"
	"time"

	"lookout/internal/platform"
)

// Event statuses as persisted in lookout.lookout_events. A row exists for
// every trigger post we have ever claimed; claiming is what guarantees
// at-most-once replies across restarts and overlapping polls.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// TriggerEvent is one detected trigger mention, keyed by the post that
// contained the trigger phrase. RequesterID is the author of the trigger
// post; the analysis target is the author of ParentPostID, which is empty
// when the trigger post was not a reply.
type TriggerEvent struct {
	EventID      string
	RequesterID  string
	TriggerPost  string
	ParentPostID string
	Text         string
	ObservedAt   time.Time
}

// ResolutionError marks events whose analysis target cannot be determined:
// the trigger post was not a reply, or its parent post or author is gone.
// These events still receive a fallback reply but never an analysis.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve analysis target: %s", e.Reason)
}

// PlatformClient is the slice of the platform API the pipeline needs.
type PlatformClient interface {
	SearchMentions(ctx context.Context, query string, startTime time.Time) ([]platform.PostRecord, error)
	GetPost(ctx context.Context, id string) (platform.PostRecord, error)
	GetUser(ctx context.Context, id string) (platform.AccountRecord, error)
	GetRecentPosts(ctx context.Context, accountID string, limit int) ([]platform.PostRecord, error)
	PostReply(ctx context.Context, inReplyToID, text string) (string, error)
}
