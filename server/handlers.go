// Package server holds the public API handlers that sit next to the
// pipeline: the recent-notifications read surface and the post status
// update that preserves the single-active-post invariant.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pagestreamhq/pagestream/cache"
	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

type Server struct {
	DB    *gorm.DB
	Cache *cache.RecentStore
}

func New(db *gorm.DB, recentCache *cache.RecentStore) *Server {
	return &Server{DB: db, Cache: recentCache}
}

// LatestNotifications returns the recent items of every kind, newest first.
func (s *Server) LatestNotifications(c *gin.Context) {
	response := gin.H{}
	for kind, field := range map[protocol.Kind]string{
		protocol.KindPosts:    "posts",
		protocol.KindComments: "comments",
		protocol.KindInboxes:  "messages",
	} {
		payloads, err := s.Cache.Recent(c.Request.Context(), kind.String(), cache.RecentListLimit)
		if err != nil {
			Logger.Log.Errorf("fail to read recent %s: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		items := []json.RawMessage{}
		for _, p := range payloads {
			items = append(items, json.RawMessage(p))
		}
		response[field] = items
	}
	c.JSON(http.StatusOK, response)
}

// ClearNotifications drops the recent list of every kind.
func (s *Server) ClearNotifications(c *gin.Context) {
	for _, kind := range protocol.AllKinds {
		if err := s.Cache.ClearAll(c.Request.Context(), kind.String()); err != nil {
			Logger.Log.Errorf("fail to clear recent %s: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type updatePostStatusRequest struct {
	Status model.PostStatus `json:"status"`
}

// UpdatePostStatus sets a post's status. Activating a post demotes every
// other post in the same transaction, keeping at most one post active.
func (s *Server) UpdatePostStatus(c *gin.Context) {
	id := c.Param("id")

	req := updatePostStatusRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.Status != model.PostStatusActive && req.Status != model.PostStatusInactive {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "status must be 'active' or 'inactive'"})
		return
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Where("id = ?", id).First(&post).Error; err != nil {
			return err
		}

		if req.Status == model.PostStatusActive {
			if err := tx.Model(&model.Post{}).
				Where("id != ? AND status = ?", post.Id, model.PostStatusActive).
				Update("status", model.PostStatusInactive).Error; err != nil {
				return err
			}
		}

		return tx.Model(&post).Update("status", req.Status).Error
	})
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
