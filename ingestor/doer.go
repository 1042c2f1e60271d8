package ingestor

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pagestreamhq/pagestream/facebook"
	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/queue"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

// PostsDoer fetches the posts window of each target page and publishes one
// durable message per item on facebook_posts.
type PostsDoer struct {
	Client    *facebook.Client
	Publisher message.Publisher
}

func NewPostsDoer(client *facebook.Client, publisher message.Publisher) *PostsDoer {
	return &PostsDoer{Client: client, Publisher: publisher}
}

func (d *PostsDoer) Do(ctx context.Context, targets []string) error {
	for _, pageId := range targets {
		posts, err := d.Client.FetchPagePosts(ctx, pageId)
		if err != nil {
			// Upstream failures never escalate to job termination, the next
			// tick retries the window.
			Logger.Log.Errorf("fail to fetch posts for page %s: %v", pageId, err)
			continue
		}

		for _, post := range posts {
			msg := postToMessage(post, pageId)
			payload, err := json.Marshal(msg)
			if err != nil {
				Logger.Log.Errorf("fail to marshal post %s: %v", post.Id, err)
				continue
			}
			if err := queue.Publish(d.Publisher, protocol.KindPosts.QueueName(), payload); err != nil {
				Logger.Log.Errorf("fail to publish post %s: %v", post.Id, err)
			}
		}
	}
	return nil
}

// postToMessage derives the item type and media fields from the upstream
// status_type before enqueueing.
func postToMessage(post facebook.GraphPost, pageId string) protocol.PostMessage {
	msg := protocol.PostMessage{
		Id:          post.Id,
		Message:     post.Message,
		CreatedTime: post.CreatedTime,
		FromName:    post.From.Name,
		FromId:      post.From.Id,
		PageId:      pageId,
		Type:        string(model.PostTypeText),
	}

	switch post.StatusType {
	case "added_photos":
		msg.Type = string(model.PostTypePhoto)
		if len(post.Attachments.Data) > 0 {
			url := post.Attachments.Data[0].Media.Image.Src
			mediaType := string(model.PostTypePhoto)
			msg.MediaUrl = &url
			msg.MediaType = &mediaType
		}
	case "added_video":
		msg.Type = string(model.PostTypeVideo)
		if len(post.Attachments.Data) > 0 {
			url := post.Attachments.Data[0].Media.Source
			mediaType := string(model.PostTypeVideo)
			msg.MediaUrl = &url
			msg.MediaType = &mediaType
		}
	}
	return msg
}

// CommentsDoer runs one fetch per target post id per tick and publishes each
// comment on facebook_comments.
type CommentsDoer struct {
	Client    *facebook.Client
	Publisher message.Publisher
}

func NewCommentsDoer(client *facebook.Client, publisher message.Publisher) *CommentsDoer {
	return &CommentsDoer{Client: client, Publisher: publisher}
}

func (d *CommentsDoer) Do(ctx context.Context, targets []string) error {
	for _, postId := range targets {
		comments, err := d.Client.FetchPostComments(ctx, postId)
		if err != nil {
			Logger.Log.Errorf("fail to fetch comments for post %s: %v", postId, err)
			continue
		}

		for _, comment := range comments {
			msg := protocol.CommentMessage{
				Id:          comment.Id,
				Message:     comment.Message,
				CreatedTime: comment.CreatedTime,
				FromName:    comment.From.Name,
				FromId:      comment.From.Id,
				PostId:      postId,
				Type:        "text",
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				Logger.Log.Errorf("fail to marshal comment %s: %v", comment.Id, err)
				continue
			}
			if err := queue.Publish(d.Publisher, protocol.KindComments.QueueName(), payload); err != nil {
				Logger.Log.Errorf("fail to publish comment %s: %v", comment.Id, err)
			}
		}
	}
	return nil
}
