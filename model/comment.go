package model

import (
	"time"

	"gorm.io/gorm"
)

/*

Comment is a user comment under a page post.

Id: primary key
ProfileID:
Profile: the commenting actor, "belongs-to" relation
PostID:
Post: the post commented on, "belongs-to" relation. Comments arriving for an
unknown post are dropped by the comments worker.
ExternalId: the Facebook comment id, unique
Link: synthesized link to the commenting actor
PublishedAt: upstream created_time
*/
type Comment struct {
	Id          string         `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt
	ProfileID   string
	Profile     Profile        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	PostID      string
	Post        Post           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ExternalId  string         `gorm:"uniqueIndex"`
	Message     string
	Type        string
	Link        string
	PublishedAt time.Time
}
