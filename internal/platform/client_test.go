package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lookout/pkg/logging"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{
		BaseURL:     server.URL,
		BearerToken: "test-token",
		Logger:      logging.NewLogger(),
	})
	return client, server
}

func TestSearchMentionsOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Fatalf("expected bearer token")
		}
		if r.URL.Path != "/2/tweets/search/recent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != `"riddle me this"` {
			t.Fatalf("unexpected query %q", got)
		}
		fmt.Fprint(w, `{"data":[
			{"id":"2","text":"riddle me this","author_id":"u2","created_at":"2026-08-28T10:05:00Z","referenced_tweets":[{"type":"replied_to","id":"p2"}]},
			{"id":"1","text":"riddle me this","author_id":"u1","created_at":"2026-08-28T10:00:00Z"}
		]}`)
	}))

	posts, err := client.SearchMentions(context.Background(), `"riddle me this"`, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1" || posts[1].ID != "2" {
		t.Fatalf("expected oldest first, got %s then %s", posts[0].ID, posts[1].ID)
	}
	if posts[0].ParentID != "" {
		t.Fatalf("expected empty parent for non-reply, got %q", posts[0].ParentID)
	}
	if posts[1].ParentID != "p2" {
		t.Fatalf("expected parent p2, got %q", posts[1].ParentID)
	}
}

func TestGetPostDeletedIsNotFound(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"title":"Not Found Error","detail":"Could not find tweet with id: [42]."}]}`)
	}))

	_, err := client.GetPost(context.Background(), "42")
	if err == nil {
		t.Fatalf("expected error for deleted post")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRateLimitSurfacesTypedError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "90")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.SearchMentions(context.Background(), "q", time.Time{})
	if !IsRateLimited(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
}

func TestGetUserParsesMetrics(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/u1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"id":"u1","username":"gooduser","description":"builder","created_at":"2020-01-15T00:00:00Z","verified":true,"public_metrics":{"followers_count":1200,"following_count":300}}}`)
	}))

	account, err := client.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if account.Handle != "gooduser" || account.Followers != 1200 || account.Following != 300 || !account.Verified {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestGetRecentPostsCapsAtLimit(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("exclude"); got != "retweets,replies" {
			t.Fatalf("expected replies/reposts excluded, got %q", got)
		}
		var posts []map[string]any
		for i := 0; i < 8; i++ {
			posts = append(posts, map[string]any{
				"id":         fmt.Sprintf("t%d", i),
				"text":       "post",
				"author_id":  "u1",
				"created_at": "2026-08-28T10:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": posts})
	}))

	posts, err := client.GetRecentPosts(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("get recent posts: %v", err)
	}
	if len(posts) != 5 {
		t.Fatalf("expected 5 posts, got %d", len(posts))
	}
}

func TestPostReplyReturnsNewID(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyTo string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Reply.InReplyTo != "trigger-1" {
			t.Fatalf("expected reply to trigger-1, got %q", body.Reply.InReplyTo)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"reply-9"}}`)
	}))

	id, err := client.PostReply(context.Background(), "trigger-1", "verdict text")
	if err != nil {
		t.Fatalf("post reply: %v", err)
	}
	if id != "reply-9" {
		t.Fatalf("unexpected reply id %q", id)
	}
}
