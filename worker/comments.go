package worker

import (
	"encoding/json"
	"fmt"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
)

// CommentsHandler consumes facebook_comments messages.
type CommentsHandler struct {
	*Processor
}

func NewCommentsHandler(p *Processor) *CommentsHandler {
	return &CommentsHandler{Processor: p}
}

func (h *CommentsHandler) Kind() protocol.Kind {
	return protocol.KindComments
}

func (h *CommentsHandler) Process(payload []byte) (Result, error) {
	msg := protocol.CommentMessage{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return PoisonMessage, err
	}
	if msg.Id == "" || msg.FromId == "" || msg.PostId == "" {
		return PoisonMessage, fmt.Errorf("comment message missing required fields")
	}

	publishedAt, err := dateparse.ParseAny(msg.CreatedTime)
	if err != nil {
		return PoisonMessage, err
	}

	// Comments for unknown posts are dropped.
	var post model.Post
	res := h.DB.Where("external_id = ?", msg.PostId).First(&post)
	if res.Error == gorm.ErrRecordNotFound {
		return MissingDependency, fmt.Errorf("comment %s references unknown post %s", msg.Id, msg.PostId)
	}
	if res.Error != nil {
		return TransientFailure, res.Error
	}

	// Commenters are recorded as users. Pages commenting on their own posts
	// get misclassified here, upstream data does not disambiguate.
	profileId, err := h.ResolveProfile(msg.FromId, msg.FromName, model.ProfileKindUser)
	if err != nil {
		return TransientFailure, err
	}

	comment := model.Comment{
		Id:          uuid.New().String(),
		ProfileID:   profileId,
		PostID:      post.Id,
		ExternalId:  msg.Id,
		Message:     msg.Message,
		Type:        msg.Type,
		Link:        fmt.Sprintf("https://www.facebook.com/%s", msg.Id),
		PublishedAt: publishedAt,
	}
	ins := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&comment)
	if ins.Error != nil {
		return TransientFailure, ins.Error
	}
	if ins.RowsAffected == 0 {
		return Duplicate, nil
	}

	h.notify(protocol.KindComments, msg.Id)
	return Persisted, nil
}
