package model

import (
	"time"

	"gorm.io/gorm"
)

/*

InboxMessage is a Messenger message directed at the page.

Id: primary key
ProfileID:
Profile: the sending actor, "belongs-to" relation. Auto-created on first
sighting by the inbox worker.
ExternalId: the Facebook messenger id, unique
Type: "text", "image", "video", ... as reported by upstream
MediaUrl, MediaType: optional attachment media
Link: synthesized messenger link
PublishedAt: upstream timestamp, milliseconds since epoch upstream
*/
type InboxMessage struct {
	Id          string         `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt
	ProfileID   string
	Profile     Profile        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	ExternalId  string         `gorm:"uniqueIndex"`
	Message     string
	Type        string
	MediaUrl    *string
	MediaType   *string
	Link        string
	PublishedAt time.Time
}
