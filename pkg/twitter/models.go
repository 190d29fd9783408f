package twitter

import (
	"encoding/json"
	"time"
)

// TweetResponse is one tweet with the expansion objects it references.
// Both are kept as raw JSON; the vendor's payloads drift from its schema too
// often for a fixed model.
type TweetResponse struct {
	Tweet    json.RawMessage `json:"tweet"`
	Includes json.RawMessage `json:"includes,omitempty"`

	// MatchingRules is set for filtered stream events.
	MatchingRules []MatchingRule `json:"matching_rules,omitempty"`
}

// ID returns the tweet id, or "" when the payload carries none.
func (t TweetResponse) ID() string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(t.Tweet, &v)
	return v.ID
}

// MatchingRule identifies the stream rule an event matched.
type MatchingRule struct {
	ID  string `json:"id"`
	Tag string `json:"tag,omitempty"`
}

// PublicMetrics are a user's public counters.
type PublicMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
	ListedCount    int `json:"listed_count"`
	LikeCount      int `json:"like_count"`
}

// User is the subset of the user object this client relies on. The
// complete payload is kept in Raw.
type User struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Username        string         `json:"username"`
	CreatedAt       time.Time      `json:"created_at"`
	Description     string         `json:"description,omitempty"`
	Location        string         `json:"location,omitempty"`
	Protected       bool           `json:"protected"`
	Verified        bool           `json:"verified"`
	PinnedTweetID   string         `json:"pinned_tweet_id,omitempty"`
	ProfileImageURL string         `json:"profile_image_url,omitempty"`
	PublicMetrics   *PublicMetrics `json:"public_metrics,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Rule is a filtered stream rule.
type Rule struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Tag   string `json:"tag,omitempty"`
}

// RulesRequest adds or deletes stream rules. Set exactly one of Add and Delete.
type RulesRequest struct {
	Add    []Rule       `json:"add,omitempty"`
	Delete *RuleDeletes `json:"delete,omitempty"`
}

// RuleDeletes names the rules to delete by id or value.
type RuleDeletes struct {
	IDs    []string `json:"ids,omitempty"`
	Values []string `json:"values,omitempty"`
}

// RulesSummary reports the effect of a RulesRequest.
type RulesSummary struct {
	Created    int `json:"created"`
	NotCreated int `json:"not_created"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Deleted    int `json:"deleted"`
	NotDeleted int `json:"not_deleted"`
}

// RulesResponse is the result of AddOrDeleteRules.
type RulesResponse struct {
	Data []Rule `json:"data,omitempty"`
	Meta struct {
		Sent    string       `json:"sent"`
		Summary RulesSummary `json:"summary"`
	} `json:"meta"`
	Errors []json.RawMessage `json:"errors,omitempty"`
}

// CountBucket is one bucket of a tweet counts response.
type CountBucket struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TweetCount int       `json:"tweet_count"`
}

// Trend is one trending topic.
type Trend struct {
	TrendName  string `json:"trend_name"`
	TweetCount int    `json:"tweet_count,omitempty"`
}

// Usage reports the project's tweet consumption.
type Usage struct {
	ProjectID           string          `json:"project_id"`
	ProjectCap          json.Number     `json:"project_cap"`
	ProjectUsage        json.Number     `json:"project_usage"`
	CapResetDay         int             `json:"cap_reset_day"`
	DailyProjectUsage   json.RawMessage `json:"daily_project_usage,omitempty"`
	DailyClientAppUsage json.RawMessage `json:"daily_client_app_usage,omitempty"`
}

// ComplianceJobType selects tweet or user compliance.
type ComplianceJobType string

// Compliance job types.
const (
	ComplianceTweets ComplianceJobType = "tweets"
	ComplianceUsers  ComplianceJobType = "users"
)

// ComplianceJobStatus is the state of a batch compliance job.
type ComplianceJobStatus string

// Compliance job states.
const (
	JobCreated    ComplianceJobStatus = "created"
	JobInProgress ComplianceJobStatus = "in_progress"
	JobFailed     ComplianceJobStatus = "failed"
	JobComplete   ComplianceJobStatus = "complete"
	JobExpired    ComplianceJobStatus = "expired"
)

// ComplianceJob is a batch compliance job.
type ComplianceJob struct {
	ID                string              `json:"id"`
	Name              string              `json:"name,omitempty"`
	Type              ComplianceJobType   `json:"type"`
	Status            ComplianceJobStatus `json:"status"`
	Resumable         bool                `json:"resumable"`
	CreatedAt         time.Time           `json:"created_at"`
	UploadURL         string              `json:"upload_url"`
	UploadExpiresAt   time.Time           `json:"upload_expires_at"`
	DownloadURL       string              `json:"download_url"`
	DownloadExpiresAt time.Time           `json:"download_expires_at"`
}

// ComplianceEvent is one event of a compliance stream.
type ComplianceEvent struct {
	// Action is the event kind, e.g. "delete", "withheld", "user_suspend".
	Action string `json:"action"`

	// ID is the id of the affected tweet or user.
	ID string `json:"id"`

	EventAt time.Time `json:"event_at"`

	// Event is the full action object.
	Event json.RawMessage `json:"event"`
}
