package store

import "time"

// Created carries the creation timestamp shared by stored entities.
type Created struct {
	CreatedAt time.Time
}

type Identity struct {
	ID           int64
	Email        string
	Nickname     string
	PasswordHash string
	Rating       int64
	AvatarKey    string
	Created
}

type Upload struct {
	ID        int64
	ObjectKey string
	Created
}

type Tag struct {
	ID   int64
	Name string
}

type Moment struct {
	ID             int64
	AuthorID       int64
	AuthorNickname string
	Title          string
	Body           string
	Rendered       string
	PictureID      int64
	PictureKey     string
	Views          int64
	Likes          int64
	Tags           []string
	Created
}

type Comment struct {
	ID             int64
	MomentID       int64
	AuthorID       int64
	AuthorNickname string
	Body           string
	Rendered       string
	Likes          int64
	Created
}

type Notification struct {
	ID          int64
	RecipientID int64
	Text        string
	IsRead      bool
	ActorID     *int64
	MomentID    *int64
	CommentID   *int64
	Created
}

func (m Moment) ContentID() int64 { return m.ID }
func (m Moment) OwnerID() int64   { return m.AuthorID }

func (c Comment) ContentID() int64 { return c.ID }
func (c Comment) OwnerID() int64   { return c.AuthorID }
