package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
)

// InboxesHandler consumes facebook_inboxes messages.
type InboxesHandler struct {
	*Processor
}

func NewInboxesHandler(p *Processor) *InboxesHandler {
	return &InboxesHandler{Processor: p}
}

func (h *InboxesHandler) Kind() protocol.Kind {
	return protocol.KindInboxes
}

func (h *InboxesHandler) Process(payload []byte) (Result, error) {
	msg := protocol.InboxMessage{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return PoisonMessage, err
	}
	if msg.Id == "" || msg.FromId == "" {
		return PoisonMessage, fmt.Errorf("inbox message missing required fields")
	}
	if msg.CreatedTime <= 0 {
		return PoisonMessage, fmt.Errorf("inbox message has invalid created_time %d", msg.CreatedTime)
	}

	// Inbox timestamps arrive as integer milliseconds since epoch, unlike
	// posts and comments.
	publishedAt := time.UnixMilli(msg.CreatedTime).UTC()

	// Senders without a profile are auto-created, the message continues.
	profileId, err := h.ResolveProfile(msg.FromId, msg.FromName, model.ProfileKindUser)
	if err != nil {
		return TransientFailure, err
	}

	inbox := model.InboxMessage{
		Id:          uuid.New().String(),
		ProfileID:   profileId,
		ExternalId:  msg.Id,
		Message:     msg.Message,
		Type:        msg.Type,
		MediaUrl:    msg.MediaUrl,
		MediaType:   msg.MediaType,
		Link:        "https://m.me",
		PublishedAt: publishedAt,
	}
	res := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&inbox)
	if res.Error != nil {
		return TransientFailure, res.Error
	}
	if res.RowsAffected == 0 {
		return Duplicate, nil
	}

	h.notify(protocol.KindInboxes, msg.Id)
	return Persisted, nil
}
