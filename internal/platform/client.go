package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"lookout/pkg/clients"
	"lookout/pkg/logging"
)

// Client is a typed HTTP client for the social platform API (X API v2
// shaped). Transient transport failures are retried internally; rate limits
// and not-found conditions surface as typed errors.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	logger      logging.Logger
	retryConfig clients.RetryConfig
}

// Config represents the configuration for the platform client
type Config struct {
	BaseURL              string
	BearerToken          string
	Timeout              time.Duration
	Logger               logging.Logger
	RetryConfig          *clients.RetryConfig
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// NewClient creates a new platform API client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.x.com"
	}

	retryConfig := clients.DefaultRetryConfig()
	if config.RetryConfig != nil {
		retryConfig = *config.RetryConfig
	}
	if config.CircuitBreakerConfig != nil {
		retryConfig.CircuitBreaker = clients.NewCircuitBreaker(*config.CircuitBreakerConfig)
	}

	return &Client{
		baseURL:     baseURL,
		bearerToken: config.BearerToken,
		httpClient:  &http.Client{Timeout: config.Timeout},
		logger:      config.Logger,
		retryConfig: retryConfig,
	}
}

// SearchMentions returns posts matching the query created after startTime,
// oldest first.
func (c *Client) SearchMentions(ctx context.Context, query string, startTime time.Time) ([]PostRecord, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", "100")
	params.Set("tweet.fields", "author_id,created_at,referenced_tweets")
	if !startTime.IsZero() {
		params.Set("start_time", startTime.UTC().Format(time.RFC3339))
	}

	var envelope struct {
		Data []apiPost `json:"data"`
	}
	if err := c.get(ctx, "/2/tweets/search/recent?"+params.Encode(), &envelope); err != nil {
		return nil, fmt.Errorf("search mentions: %w", err)
	}

	posts := make([]PostRecord, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		posts = append(posts, raw.toRecord())
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
	return posts, nil
}

// GetPost fetches a single post. A deleted or withheld post yields an
// APIError that satisfies IsNotFound.
func (c *Client) GetPost(ctx context.Context, id string) (PostRecord, error) {
	params := url.Values{}
	params.Set("tweet.fields", "author_id,created_at,referenced_tweets")

	var envelope struct {
		Data   *apiPost       `json:"data"`
		Errors []apiErrorItem `json:"errors"`
	}
	if err := c.get(ctx, "/2/tweets/"+url.PathEscape(id)+"?"+params.Encode(), &envelope); err != nil {
		return PostRecord{}, fmt.Errorf("get post %s: %w", id, err)
	}
	if envelope.Data == nil {
		return PostRecord{}, &APIError{
			StatusCode: http.StatusNotFound,
			Message:    firstErrorDetail(envelope.Errors, "post not found"),
		}
	}
	return envelope.Data.toRecord(), nil
}

// GetUser fetches the public attributes of an account.
func (c *Client) GetUser(ctx context.Context, id string) (AccountRecord, error) {
	params := url.Values{}
	params.Set("user.fields", "created_at,description,public_metrics,verified")

	var envelope struct {
		Data   *apiUser       `json:"data"`
		Errors []apiErrorItem `json:"errors"`
	}
	if err := c.get(ctx, "/2/users/"+url.PathEscape(id)+"?"+params.Encode(), &envelope); err != nil {
		return AccountRecord{}, fmt.Errorf("get user %s: %w", id, err)
	}
	if envelope.Data == nil {
		return AccountRecord{}, &APIError{
			StatusCode: http.StatusNotFound,
			Message:    firstErrorDetail(envelope.Errors, "user not found"),
		}
	}
	return envelope.Data.toRecord(), nil
}

// GetRecentPosts returns up to limit recent original posts by the account.
// Replies and reposts are excluded so the sample reflects the account's own
// voice.
func (c *Client) GetRecentPosts(ctx context.Context, accountID string, limit int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("max_results", strconv.Itoa(max(limit, 5)))
	params.Set("exclude", "retweets,replies")
	params.Set("tweet.fields", "author_id,created_at")

	var envelope struct {
		Data []apiPost `json:"data"`
	}
	if err := c.get(ctx, "/2/users/"+url.PathEscape(accountID)+"/tweets?"+params.Encode(), &envelope); err != nil {
		return nil, fmt.Errorf("get recent posts for %s: %w", accountID, err)
	}

	posts := make([]PostRecord, 0, limit)
	for _, raw := range envelope.Data {
		posts = append(posts, raw.toRecord())
		if len(posts) == limit {
			break
		}
	}
	return posts, nil
}

// PostReply posts text as a direct reply to the given post and returns the
// new post's id.
func (c *Client) PostReply(ctx context.Context, inReplyToID, text string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"text": text,
		"reply": map[string]string{
			"in_reply_to_tweet_id": inReplyToID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("post reply: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("post reply: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, c.retryConfig)
	if err != nil {
		return "", fmt.Errorf("post reply: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("post reply: read response: %w", err)
	}
	if err := statusError(resp, body); err != nil {
		return "", fmt.Errorf("post reply: %w", err)
	}

	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("post reply: parse response: %w", err)
	}
	if envelope.Data.ID == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "reply accepted but no id returned"}
	}
	return envelope.Data.ID, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, c.retryConfig)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := statusError(resp, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
}

func statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	message := strings.TrimSpace(string(body))
	var parsed struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		message = parsed.Detail
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	if v := resp.Header.Get("X-Rate-Limit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
				return wait
			}
		}
	}
	return 0
}

type apiPost struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	AuthorID         string    `json:"author_id"`
	CreatedAt        time.Time `json:"created_at"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

func (p apiPost) toRecord() PostRecord {
	record := PostRecord{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
	}
	for _, ref := range p.ReferencedTweets {
		if ref.Type == "replied_to" {
			record.ParentID = ref.ID
			break
		}
	}
	return record
}

type apiUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	Verified      bool      `json:"verified"`
	PublicMetrics struct {
		Followers int `json:"followers_count"`
		Following int `json:"following_count"`
	} `json:"public_metrics"`
}

func (u apiUser) toRecord() AccountRecord {
	return AccountRecord{
		ID:        u.ID,
		Handle:    u.Username,
		Bio:       u.Description,
		CreatedAt: u.CreatedAt,
		Followers: u.PublicMetrics.Followers,
		Following: u.PublicMetrics.Following,
		Verified:  u.Verified,
	}
}

type apiErrorItem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func firstErrorDetail(items []apiErrorItem, fallback string) string {
	for _, item := range items {
		if item.Detail != "" {
			return item.Detail
		}
		if item.Title != "" {
			return item.Title
		}
	}
	return fallback
}
