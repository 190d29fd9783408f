package twitter

import (
	"net/url"
	"strings"
	"time"
)

// TimeFormat is the vendor's timestamp format for start_time and end_time.
const TimeFormat = "2006-01-02T15:04:05Z"

// Default field selectors requested with every tweet and user payload.
const (
	DefaultTweetFields = "article,attachments,author_id,card_uri,context_annotations,conversation_id,created_at," +
		"display_text_range,edit_controls,edit_history_tweet_ids,entities,geo,id,in_reply_to_user_id,lang," +
		"media_metadata,note_tweet,possibly_sensitive,public_metrics,referenced_tweets,reply_settings,scopes,source,text,withheld"

	DefaultExpansions = "article.cover_media,article.media_entities,attachments.media_keys,attachments.media_source_tweet," +
		"attachments.poll_ids,author_id,edit_history_tweet_ids,entities.mentions.username,geo.place_id," +
		"in_reply_to_user_id,entities.note.mentions.username,referenced_tweets.id,referenced_tweets.id.author_id"

	DefaultUserFields = "affiliation,connection_status,created_at,description,entities,id,location,most_recent_tweet_id," +
		"name,pinned_tweet_id,profile_banner_url,profile_image_url,protected,public_metrics,receives_your_dm," +
		"subscription_type,url,username,verified,verified_type,withheld"

	DefaultMediaFields    = "media_key,duration_ms,height,preview_image_url,type,url,width,public_metrics,alt_text,variants"
	DefaultPollFields     = "duration_minutes,end_datetime,id,options,voting_status"
	DefaultPlaceFields    = "contained_within,country,country_code,full_name,geo,id,name,place_type"
	DefaultUserExpansions = "affiliation.user_id,most_recent_tweet_id,pinned_tweet_id"
)

// Fields selects the optional fields and expansions the vendor returns.
// Empty selectors are not sent.
type Fields struct {
	Tweet          string
	Expansions     string
	User           string
	Media          string
	Poll           string
	Place          string
	UserExpansions string
}

// DefaultFields requests every documented field.
func DefaultFields() Fields {
	return Fields{
		Tweet:          DefaultTweetFields,
		Expansions:     DefaultExpansions,
		User:           DefaultUserFields,
		Media:          DefaultMediaFields,
		Poll:           DefaultPollFields,
		Place:          DefaultPlaceFields,
		UserExpansions: DefaultUserExpansions,
	}
}

// tweetParams adds the selectors for endpoints returning tweets.
func (f Fields) tweetParams(q url.Values) {
	set(q, "tweet.fields", f.Tweet)
	set(q, "expansions", f.Expansions)
	set(q, "user.fields", f.User)
	set(q, "media.fields", f.Media)
	set(q, "poll.fields", f.Poll)
	set(q, "place.fields", f.Place)
}

// userParams adds the selectors for endpoints returning users.
func (f Fields) userParams(q url.Values, expand bool) {
	set(q, "user.fields", f.User)
	if expand {
		set(q, "tweet.fields", f.Tweet)
		set(q, "expansions", f.UserExpansions)
	}
}

func set(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setTime(q url.Values, key string, t time.Time) {
	if !t.IsZero() {
		q.Set(key, t.UTC().Format(TimeFormat))
	}
}

func setList(q url.Values, key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ","))
	}
}
