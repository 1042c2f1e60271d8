package protocol

// PostMessage is the broker payload for one upstream post, one message per
// item on the facebook_posts queue. CreatedTime is ISO-8601 with offset.
type PostMessage struct {
	Id          string  `json:"id"`
	Message     string  `json:"message"`
	CreatedTime string  `json:"created_time"`
	FromName    string  `json:"from_name"`
	FromId      string  `json:"from_id"`
	PageId      string  `json:"page_id"`
	MediaUrl    *string `json:"media_url"`
	MediaType   *string `json:"media_type"`
	Type        string  `json:"type"`
}

// CommentMessage is the broker payload for one upstream comment.
type CommentMessage struct {
	Id          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	FromName    string `json:"from_name"`
	FromId      string `json:"from_id"`
	PostId      string `json:"post_id"`
	Type        string `json:"type"`
}

// InboxMessage is the broker payload for one Messenger message. CreatedTime
// is integer milliseconds since epoch, unlike posts and comments.
type InboxMessage struct {
	Id          string  `json:"id"`
	Message     string  `json:"message"`
	CreatedTime int64   `json:"created_time"`
	FromName    string  `json:"from_name"`
	FromId      string  `json:"from_id"`
	Type        string  `json:"type"`
	MediaUrl    *string `json:"media_url,omitempty"`
	MediaType   *string `json:"media_type,omitempty"`
}

// SeededEvent is the event name carried on every internal webhook envelope.
const SeededEvent = "seeded_event"

// WebhookEnvelope is the body a worker posts to the notifier after a row was
// actually inserted. Id is the upstream external id of the persisted item.
type WebhookEnvelope struct {
	Event string `json:"event"`
	Id    string `json:"id"`
}
