// Package notifier hosts the internal webhook endpoints the workers call
// after persisting a row. Each endpoint reloads the row joined with its
// profile, writes the projection into the recent cache and broadcasts it
// over the push channel.
package notifier

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pagestreamhq/pagestream/cache"
	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/push"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

type Notifier struct {
	DB    *gorm.DB
	Cache *cache.RecentStore
	Hub   *push.Hub
}

func New(db *gorm.DB, recentCache *cache.RecentStore, hub *push.Hub) *Notifier {
	return &Notifier{DB: db, Cache: recentCache, Hub: hub}
}

// AddWebhookRoutes mounts the three per-kind endpoints onto rg. The caller
// is expected to guard rg with the internal allow-list middleware.
func (n *Notifier) AddWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST(protocol.KindPosts.WebhookPath(), n.handleWebhook(protocol.KindPosts))
	rg.POST(protocol.KindComments.WebhookPath(), n.handleWebhook(protocol.KindComments))
	rg.POST(protocol.KindInboxes.WebhookPath(), n.handleWebhook(protocol.KindInboxes))
}

func (n *Notifier) handleWebhook(kind protocol.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		envelope := protocol.WebhookEnvelope{}
		if err := c.ShouldBindJSON(&envelope); err != nil || envelope.Id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing id"})
			return
		}

		payload, err := n.loadPayload(kind, envelope.Id)
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "unknown id " + envelope.Id})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}

		serialized, err := json.Marshal(payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}

		// Cache write failures are swallowed: the push emit still happens.
		if n.Cache != nil {
			entryId := cache.SynthesizeId(envelope.Id)
			if err := n.Cache.Store(c.Request.Context(), kind.String(), entryId, serialized); err != nil {
				Logger.Log.Errorf("fail to cache %s payload for %s: %v", kind, envelope.Id, err)
			}
		}

		// Broadcast itself cannot fail (dead sessions are dropped inside the
		// hub), so the only broadcast-failure mode surfaced as 500 is the
		// push channel not being wired at all.
		if n.Hub == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "push channel unavailable"})
			return
		}
		n.Hub.Broadcast(kind.PushEvent(), json.RawMessage(serialized))

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// loadPayload reads the persisted row of the kind by external id together
// with its profile, as a flat projection.
func (n *Notifier) loadPayload(kind protocol.Kind, externalId string) (interface{}, error) {
	switch kind {
	case protocol.KindPosts:
		var post model.Post
		if err := n.DB.Preload("Profile").Where("external_id = ?", externalId).First(&post).Error; err != nil {
			return nil, err
		}
		return NewPostPayload(&post)
	case protocol.KindComments:
		var comment model.Comment
		if err := n.DB.Preload("Profile").Preload("Post").Where("external_id = ?", externalId).First(&comment).Error; err != nil {
			return nil, err
		}
		return NewCommentPayload(&comment)
	default:
		var inbox model.InboxMessage
		if err := n.DB.Preload("Profile").Where("external_id = ?", externalId).First(&inbox).Error; err != nil {
			return nil, err
		}
		return NewInboxPayload(&inbox)
	}
}
