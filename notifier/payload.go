package notifier

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/pagestreamhq/pagestream/model"
)

// ProfileProjection is the compact actor view attached to every payload.
type ProfileProjection struct {
	Id                string `json:"id"`
	Name              string `json:"name"`
	ProfilePictureUrl string `json:"profile_picture_url"`
}

func projectProfile(p *model.Profile) ProfileProjection {
	return ProfileProjection{
		Id:                p.Id,
		Name:              p.Name,
		ProfilePictureUrl: p.PictureUrl,
	}
}

// PostPayload is the cached/broadcast projection of a persisted post.
type PostPayload struct {
	PostId      string            `json:"post_id"`
	Message     string            `json:"message"`
	Type        string            `json:"type"`
	Permalink   string            `json:"permalink"`
	MediaUrl    *string           `json:"media_url"`
	MediaType   *string           `json:"media_type"`
	Status      string            `json:"status"`
	PublishedAt time.Time         `json:"published_at"`
	Profile     ProfileProjection `json:"profile"`
}

func NewPostPayload(post *model.Post) (*PostPayload, error) {
	payload := PostPayload{}
	if err := copier.Copy(&payload, post); err != nil {
		return nil, err
	}
	payload.PostId = post.ExternalId
	payload.Profile = projectProfile(&post.Profile)
	return &payload, nil
}

// CommentPayload is the cached/broadcast projection of a persisted comment.
type CommentPayload struct {
	CommentId   string            `json:"comment_id"`
	PostId      string            `json:"post_id"`
	Message     string            `json:"message"`
	Type        string            `json:"type"`
	Link        string            `json:"link"`
	PublishedAt time.Time         `json:"published_at"`
	Profile     ProfileProjection `json:"profile"`
}

func NewCommentPayload(comment *model.Comment) (*CommentPayload, error) {
	payload := CommentPayload{}
	if err := copier.Copy(&payload, comment); err != nil {
		return nil, err
	}
	payload.CommentId = comment.ExternalId
	payload.PostId = comment.Post.ExternalId
	payload.Profile = projectProfile(&comment.Profile)
	return &payload, nil
}

// InboxPayload is the cached/broadcast projection of a persisted messenger
// message.
type InboxPayload struct {
	MessengerId string            `json:"messenger_id"`
	Message     string            `json:"message"`
	Type        string            `json:"type"`
	MediaUrl    *string           `json:"media_url"`
	MediaType   *string           `json:"media_type"`
	Link        string            `json:"link"`
	PublishedAt time.Time         `json:"published_at"`
	Profile     ProfileProjection `json:"profile"`
}

func NewInboxPayload(inbox *model.InboxMessage) (*InboxPayload, error) {
	payload := InboxPayload{}
	if err := copier.Copy(&payload, inbox); err != nil {
		return nil, err
	}
	payload.MessengerId = inbox.ExternalId
	payload.Profile = projectProfile(&inbox.Profile)
	return &payload, nil
}
