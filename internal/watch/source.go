package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lookout/pkg/logging"
)

const defaultPollOverlap = 2 * time.Minute

type SourceConfig struct {
	Client        PlatformClient
	TriggerPhrase string
	Overlap       time.Duration
	Logger        logging.Logger
}

// Source polls the platform for posts containing the trigger phrase and
// turns them into trigger events. The search window always starts a little
// before the watermark; the resulting re-reads are absorbed by the store's
// Claim dedup.
type Source struct {
	client  PlatformClient
	phrase  string
	overlap time.Duration
	logger  logging.Logger
}

func NewSource(cfg SourceConfig) *Source {
	overlap := cfg.Overlap
	if overlap <= 0 {
		overlap = defaultPollOverlap
	}
	return &Source{
		client:  cfg.Client,
		phrase:  cfg.TriggerPhrase,
		overlap: overlap,
		logger:  cfg.Logger,
	}
}

// Poll fetches mentions since the watermark and returns the matching trigger
// events oldest-first, plus the new watermark (the newest post's timestamp,
// or the old watermark when nothing matched).
func (s *Source) Poll(ctx context.Context, watermark time.Time) ([]TriggerEvent, time.Time, error) {
	since := watermark
	if !since.IsZero() {
		since = since.Add(-s.overlap)
	}

	posts, err := s.client.SearchMentions(ctx, s.searchQuery(), since)
	if err != nil {
		return nil, watermark, fmt.Errorf("poll mentions: %w", err)
	}

	next := watermark
	var events []TriggerEvent
	for _, post := range posts {
		if post.CreatedAt.After(next) {
			next = post.CreatedAt
		}
		if !containsPhrase(post.Text, s.phrase) {
			// Search operators are looser than an exact-phrase match;
			// drop near misses here.
			continue
		}
		events = append(events, TriggerEvent{
			EventID:      post.ID,
			RequesterID:  post.AuthorID,
			TriggerPost:  post.ID,
			ParentPostID: post.ParentID,
			Text:         post.Text,
			ObservedAt:   post.CreatedAt,
		})
	}

	if s.logger != nil && len(posts) > 0 {
		s.logger.WithFields(logging.Fields{
			"fetched":   len(posts),
			"matched":   len(events),
			"watermark": next.Format(time.RFC3339),
		}).Debug("Mention poll complete")
	}
	return events, next, nil
}

func (s *Source) searchQuery() string {
	return fmt.Sprintf("%q", s.phrase)
}

// containsPhrase reports whether text contains the trigger phrase as a
// case-insensitive contiguous substring.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}
