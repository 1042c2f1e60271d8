package model

import (
	"time"

	"gorm.io/gorm"
)

type PostType string

const (
	PostTypeText  PostType = "text"
	PostTypePhoto PostType = "photo"
	PostTypeVideo PostType = "video"
)

type PostStatus string

const (
	PostStatusActive   PostStatus = "active"
	PostStatusInactive PostStatus = "inactive"
)

/*

Post is a page-authored item fetched from the Graph API.

Id: primary key
ProfileID:
Profile: the page that authored the post, "belongs-to" relation
ExternalId: the Facebook post id, unique
Message: post text in plain text
Type: "text", "photo" or "video", derived from the upstream status_type
Permalink: synthesized link to the post
MediaUrl, MediaType: attachment media, null for text posts
Status: "active" or "inactive". At most one post is active at any time; the
status update surface demotes all others in the same transaction. The
pipeline always inserts new posts as inactive.
PublishedAt: upstream created_time

Posts are created by the posts worker and mutated only via the API surface.
*/
type Post struct {
	Id          string         `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt
	ProfileID   string
	Profile     Profile        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	ExternalId  string         `gorm:"uniqueIndex"`
	Message     string
	Type        PostType
	Permalink   string
	MediaUrl    *string
	MediaType   *string
	Status      PostStatus
	PublishedAt time.Time
}
