package model

import (
	"time"

	"gorm.io/gorm"
)

type ProfileKind string

const (
	ProfileKindPage ProfileKind = "page"
	ProfileKindUser ProfileKind = "user"
)

/*

Profile is the identity of a Facebook actor, either the operated page itself
or a user interacting with it.

Id: primary key
ExternalId: the Facebook-assigned actor id, unique per actor
Kind: "page" or "user". Whichever worker first sights the actor decides the
kind: the posts worker creates pages, the comments and inbox workers create
users.
Name: display name as reported by upstream
PictureUrl: profile picture url

Profiles are created on first sighting and never deleted by the pipeline.
*/
type Profile struct {
	Id         string         `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt
	ExternalId string         `gorm:"uniqueIndex"`
	Kind       ProfileKind
	Name       string
	PictureUrl string
}
