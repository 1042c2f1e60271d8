// Package protocol defines the wire types shared by the ingestor, the
// workers and the notifier: broker queue payloads, the internal webhook
// envelope, and the per-kind constants that parameterize queues, cache
// namespaces and push events.
package protocol

// Kind identifies one of the three ingested item families.
type Kind string

const (
	KindPosts    Kind = "posts"
	KindComments Kind = "comments"
	KindInboxes  Kind = "inboxes"
)

var AllKinds = []Kind{KindPosts, KindComments, KindInboxes}

func (k Kind) IsValid() bool {
	switch k {
	case KindPosts, KindComments, KindInboxes:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// QueueName returns the fixed broker queue name for the kind.
func (k Kind) QueueName() string {
	switch k {
	case KindPosts:
		return "facebook_posts"
	case KindComments:
		return "facebook_comments"
	default:
		return "facebook_inboxes"
	}
}

// PushEvent returns the push channel event emitted when an item of this kind
// is persisted.
func (k Kind) PushEvent() string {
	switch k {
	case KindPosts:
		return "facebook_post.created"
	case KindComments:
		return "facebook_comment.created"
	default:
		return "facebook_messenger.created"
	}
}

// WebhookPath returns the notifier's internal webhook path for the kind,
// relative to the API v1 group.
func (k Kind) WebhookPath() string {
	switch k {
	case KindPosts:
		return "/webhooks/facebook-posts"
	case KindComments:
		return "/webhooks/facebook-comments"
	default:
		return "/webhooks/facebook-inboxes"
	}
}
