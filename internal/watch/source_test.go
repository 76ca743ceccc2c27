package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"lookout/internal/platform"
)

type fakePlatform struct {
	mentions      []platform.PostRecord
	mentionsErr   error
	searchQueries []string
	searchSince   []time.Time

	posts   map[string]platform.PostRecord
	postErr error
	users   map[string]platform.AccountRecord

	recentPosts []platform.PostRecord
	recentErr   error

	replies    []string
	replyTexts []string
	replyErr   error
	replyID    string
}

func (f *fakePlatform) SearchMentions(_ context.Context, query string, startTime time.Time) ([]platform.PostRecord, error) {
	f.searchQueries = append(f.searchQueries, query)
	f.searchSince = append(f.searchSince, startTime)
	return f.mentions, f.mentionsErr
}

func (f *fakePlatform) GetPost(_ context.Context, id string) (platform.PostRecord, error) {
	if f.postErr != nil {
		return platform.PostRecord{}, f.postErr
	}
	post, ok := f.posts[id]
	if !ok {
		return platform.PostRecord{}, &platform.APIError{StatusCode: 404, Message: "not found"}
	}
	return post, nil
}

func (f *fakePlatform) GetUser(_ context.Context, id string) (platform.AccountRecord, error) {
	user, ok := f.users[id]
	if !ok {
		return platform.AccountRecord{}, &platform.APIError{StatusCode: 404, Message: "not found"}
	}
	return user, nil
}

func (f *fakePlatform) GetRecentPosts(_ context.Context, _ string, _ int) ([]platform.PostRecord, error) {
	return f.recentPosts, f.recentErr
}

func (f *fakePlatform) PostReply(_ context.Context, inReplyToID, text string) (string, error) {
	if f.replyErr != nil {
		return "", f.replyErr
	}
	f.replies = append(f.replies, inReplyToID)
	f.replyTexts = append(f.replyTexts, text)
	if f.replyID != "" {
		return f.replyID, nil
	}
	return "reply-1", nil
}

func TestPollMatchesTriggerPhrase(t *testing.T) {
	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	client := &fakePlatform{
		mentions: []platform.PostRecord{
			{ID: "1", AuthorID: "a1", ParentID: "p1", Text: "@lookout riddle me this", CreatedAt: base},
			{ID: "2", AuthorID: "a2", ParentID: "p2", Text: "@lookout Riddle Me THIS please", CreatedAt: base.Add(time.Minute)},
			{ID: "3", AuthorID: "a3", ParentID: "p3", Text: "@lookout riddle me that", CreatedAt: base.Add(2 * time.Minute)},
		},
	}
	source := NewSource(SourceConfig{Client: client, TriggerPhrase: "riddle me this"})

	events, next, err := source.Poll(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 matching events, got %d", len(events))
	}
	if events[0].EventID != "1" || events[1].EventID != "2" {
		t.Errorf("expected oldest-first events 1,2; got %s,%s", events[0].EventID, events[1].EventID)
	}
	if events[0].RequesterID != "a1" || events[0].ParentPostID != "p1" {
		t.Errorf("unexpected event mapping: %+v", events[0])
	}

	// The watermark covers everything fetched, matching or not.
	if !next.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected watermark at newest post, got %v", next)
	}
}

func TestPollAppliesOverlapWindow(t *testing.T) {
	client := &fakePlatform{}
	source := NewSource(SourceConfig{Client: client, TriggerPhrase: "riddle me this", Overlap: 2 * time.Minute})

	watermark := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := source.Poll(context.Background(), watermark); err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if len(client.searchSince) != 1 {
		t.Fatalf("expected one search, got %d", len(client.searchSince))
	}
	if !client.searchSince[0].Equal(watermark.Add(-2 * time.Minute)) {
		t.Errorf("expected search to start 2m before watermark, got %v", client.searchSince[0])
	}
	if client.searchQueries[0] != `"riddle me this"` {
		t.Errorf("expected quoted phrase query, got %q", client.searchQueries[0])
	}
}

func TestPollZeroWatermarkHasNoOverlap(t *testing.T) {
	client := &fakePlatform{}
	source := NewSource(SourceConfig{Client: client, TriggerPhrase: "riddle me this"})

	if _, _, err := source.Poll(context.Background(), time.Time{}); err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if !client.searchSince[0].IsZero() {
		t.Errorf("expected zero start time on first poll, got %v", client.searchSince[0])
	}
}

func TestPollKeepsWatermarkOnError(t *testing.T) {
	client := &fakePlatform{mentionsErr: errors.New("boom")}
	source := NewSource(SourceConfig{Client: client, TriggerPhrase: "riddle me this"})

	watermark := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	_, next, err := source.Poll(context.Background(), watermark)
	if err == nil {
		t.Fatal("expected error")
	}
	if !next.Equal(watermark) {
		t.Errorf("expected watermark unchanged on error, got %v", next)
	}
}
