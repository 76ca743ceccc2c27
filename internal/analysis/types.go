package analysis

import "time"

// DefaultTrustSignals is the closed set of verdict labels the model is asked
// to choose from. Operators may override it, but every published reply
// carries exactly one label from the configured set.
var DefaultTrustSignals = []string{"Positive", "Neutral", "Caution", "Red Flag"}

// DefaultSignal is used when the model output contains no recognizable label.
const DefaultSignal = "Neutral"

// TargetAccount is the account under analysis, resolved fresh per event.
type TargetAccount struct {
	ID        string
	Handle    string
	Bio       string
	CreatedAt time.Time
	Followers int
	Following int
	Verified  bool
}

// Post is one sampled original post by the target account.
type Post struct {
	ID       string
	Text     string
	PostedAt time.Time
}

// Request fully determines the text sent to the language model.
type Request struct {
	Target          TargetAccount
	Samples         []Post
	TemplateVersion string
}

// Result is the model's verdict. Signal is always one of the configured
// closed set; LowConfidence marks results where no label could be extracted
// from the raw output. TemplateVersion records which prompt template
// produced the verdict.
type Result struct {
	Summary         string
	Signal          string
	LowConfidence   bool
	TemplateVersion string
}
