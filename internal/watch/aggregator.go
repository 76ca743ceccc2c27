package watch

import (
	"context"
	"fmt"

	"lookout/internal/analysis"
	"lookout/internal/platform"
	"lookout/pkg/logging"
)

const defaultSampleLimit = 5

type AggregatorConfig struct {
	Client      PlatformClient
	SampleLimit int
	Logger      logging.Logger
}

// Aggregator assembles the analysis request for a resolved target: the
// profile itself plus a sample of recent original posts. The sample is best
// effort; a target with no usable posts still gets analyzed on profile data
// alone.
type Aggregator struct {
	client      PlatformClient
	sampleLimit int
	logger      logging.Logger
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	limit := cfg.SampleLimit
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	return &Aggregator{
		client:      cfg.Client,
		sampleLimit: limit,
		logger:      cfg.Logger,
	}
}

// Aggregate builds the analysis request for target. Rate limits while
// sampling abort the event so the orchestrator can back off; other sampling
// failures degrade to an empty sample.
func (a *Aggregator) Aggregate(ctx context.Context, target platform.AccountRecord) (analysis.Request, error) {
	req := analysis.Request{
		Target: analysis.TargetAccount{
			ID:        target.ID,
			Handle:    target.Handle,
			Bio:       target.Bio,
			CreatedAt: target.CreatedAt,
			Followers: target.Followers,
			Following: target.Following,
			Verified:  target.Verified,
		},
	}

	posts, err := a.client.GetRecentPosts(ctx, target.ID, a.sampleLimit)
	if err != nil {
		if platform.IsRateLimited(err) {
			return analysis.Request{}, fmt.Errorf("sample recent posts: %w", err)
		}
		if a.logger != nil {
			a.logger.WithError(err).WithField("target", target.Handle).Warn("Post sampling failed, analyzing on profile data only")
		}
		return req, nil
	}

	for _, post := range posts {
		req.Samples = append(req.Samples, analysis.Post{
			ID:       post.ID,
			Text:     post.Text,
			PostedAt: post.CreatedAt,
		})
	}
	return req, nil
}
