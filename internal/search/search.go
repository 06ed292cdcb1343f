// Package search finds moments by tag. Meilisearch serves queries while it is
// healthy; PostgreSQL tag links answer otherwise.
package search

import (
	"context"

	"moments/api/internal/store"
)

// PageSize bounds one page of tag results.
const PageSize = 50

// MomentRecord is the data we index for a moment.
type MomentRecord struct {
	ID          int64    `json:"id"`
	AuthorID    int64    `json:"authorId"`
	Author      string   `json:"author"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedAt   int64    `json:"createdAt"`
}

func RecordFromMoment(m store.Moment) MomentRecord {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return MomentRecord{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		Author:      m.AuthorNickname,
		Title:       m.Title,
		Description: m.Body,
		Tags:        tags,
		CreatedAt:   m.CreatedAt.Unix(),
	}
}

// Query selects one page of moments carrying Tag, newest first.
type Query struct {
	Tag      string
	Text     string
	BeforeID int64
	Limit    int
}

// Index is a search backend holding MomentRecords.
type Index interface {
	Healthy() bool
	Search(ctx context.Context, q Query) ([]int64, error)
	IndexMoments(records []MomentRecord) error
	DeleteMoment(id int64) error
}

// Moments is the relational side used for fallback queries and reindexing.
type Moments interface {
	MomentByID(ctx context.Context, id int64) (store.Moment, error)
	MomentsByTag(ctx context.Context, tag string, beforeID int64, limit int) ([]store.Moment, error)
	MomentsWithTags(ctx context.Context, afterID int64, limit int) ([]store.Moment, error)
}
