package worker

import (
	"encoding/json"
	"fmt"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
)

// PostsHandler consumes facebook_posts messages.
type PostsHandler struct {
	*Processor
}

func NewPostsHandler(p *Processor) *PostsHandler {
	return &PostsHandler{Processor: p}
}

func (h *PostsHandler) Kind() protocol.Kind {
	return protocol.KindPosts
}

func (h *PostsHandler) Process(payload []byte) (Result, error) {
	msg := protocol.PostMessage{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return PoisonMessage, err
	}
	if msg.Id == "" || (msg.FromId == "" && msg.PageId == "") {
		return PoisonMessage, fmt.Errorf("post message missing required fields")
	}

	publishedAt, err := dateparse.ParseAny(msg.CreatedTime)
	if err != nil {
		return PoisonMessage, err
	}

	// The author of a page post is the page itself.
	actorId, actorName := msg.FromId, msg.FromName
	if actorId == "" {
		actorId = msg.PageId
	}
	profileId, err := h.ResolveProfile(actorId, actorName, model.ProfileKindPage)
	if err != nil {
		return TransientFailure, err
	}

	post := model.Post{
		Id:          uuid.New().String(),
		ProfileID:   profileId,
		ExternalId:  msg.Id,
		Message:     msg.Message,
		Type:        model.PostType(msg.Type),
		Permalink:   fmt.Sprintf("https://www.facebook.com/posts/%s", msg.Id),
		MediaUrl:    msg.MediaUrl,
		MediaType:   msg.MediaType,
		Status:      model.PostStatusInactive,
		PublishedAt: publishedAt,
	}
	res := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&post)
	if res.Error != nil {
		return TransientFailure, res.Error
	}
	if res.RowsAffected == 0 {
		return Duplicate, nil
	}

	h.notify(protocol.KindPosts, msg.Id)
	return Persisted, nil
}
