package platform

import "time"

// PostRecord is a validated post as returned by the platform API.
type PostRecord struct {
	ID        string
	AuthorID  string
	ParentID  string // empty when the post is not a reply
	Text      string
	CreatedAt time.Time
}

// AccountRecord holds the public attributes of an account.
type AccountRecord struct {
	ID        string
	Handle    string
	Bio       string
	CreatedAt time.Time
	Followers int
	Following int
	Verified  bool
}
