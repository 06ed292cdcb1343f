// Package content creates and manages moments and comments.
//
// Creating content is one unit of work: the content row, its tag links and
// the notification rows for every mentioned identity commit or roll back
// together. Delivery of those notifications happens after commit and is
// best-effort.
package content

import (
	"context"
	"io"
	"log/slog"

	"moments/api/internal/blob"
	"moments/api/internal/parser"
	"moments/api/internal/store"
)

const (
	MaxTitleLength       = 128
	MaxDescriptionLength = 4096
	MaxCommentLength     = 1024

	// PageSize bounds the moment listings returned by the pipeline.
	PageSize = 50
	// CommentPageSize bounds one page of comments under a moment.
	CommentPageSize = 10
)

// Likeable is satisfied by every content variant.
type Likeable interface {
	ContentID() int64
	OwnerID() int64
}

var (
	_ Likeable = store.Moment{}
	_ Likeable = store.Comment{}
)

// Repository is the storage the pipeline needs. Inside WithinTx every call
// shares one transaction.
type Repository interface {
	parser.Resolver

	IdentityByID(ctx context.Context, id int64) (store.Identity, error)
	AdjustRating(ctx context.Context, id, delta int64) error

	InsertUpload(ctx context.Context, objectKey string) (store.Upload, error)

	InsertMoment(ctx context.Context, m store.Moment) (store.Moment, error)
	MomentByID(ctx context.Context, id int64) (store.Moment, error)
	LockMoment(ctx context.Context, id int64) (store.Moment, error)
	UpdateMoment(ctx context.Context, id int64, title, body, rendered string) error
	IncrementMomentViews(ctx context.Context, id int64) error
	DeleteMoment(ctx context.Context, id int64) error
	MomentsByAuthor(ctx context.Context, authorID, beforeID int64, limit int) ([]store.Moment, error)
	FeedMoments(ctx context.Context, subscriberID, beforeID int64, limit int) ([]store.Moment, error)

	LinkMomentTag(ctx context.Context, momentID, tagID int64) error
	ClearMomentTags(ctx context.Context, momentID int64) error
	MomentTags(ctx context.Context, momentID int64) ([]string, error)
	LinkCommentTag(ctx context.Context, commentID, tagID int64) error

	InsertComment(ctx context.Context, c store.Comment) (store.Comment, error)
	CommentByID(ctx context.Context, id int64) (store.Comment, error)
	LockComment(ctx context.Context, id int64) (store.Comment, error)
	CommentByAuthor(ctx context.Context, momentID, authorID int64) (store.Comment, error)
	CommentExists(ctx context.Context, momentID, authorID int64) (bool, error)
	CommentsByMoment(ctx context.Context, momentID, excludeAuthorID, beforeID int64, limit int) ([]store.Comment, error)
	CountComments(ctx context.Context, momentID int64) (int64, error)
	ReleaseCommentRatings(ctx context.Context, momentID int64) error
	DeleteComment(ctx context.Context, id int64) error

	InsertNotification(ctx context.Context, n store.Notification) (store.Notification, error)
}

// Store is a Repository that can also open a unit of work.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Scheduler hands committed notifications to the delivery channel.
type Scheduler interface {
	Schedule(ctx context.Context, notifications []store.Notification)
}

// Indexer mirrors moments into the search index. Calls must not block.
type Indexer interface {
	IndexMoment(m store.Moment)
	DeleteMoment(id int64)
}

// Attachment is an uploaded file that has not been stored yet.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type MomentInput struct {
	Title       string
	Description string
	Picture     Attachment
}

type Pipeline struct {
	store   Store
	blobs   blob.Store
	fanout  Scheduler
	indexer Indexer
	logger  *slog.Logger
}

func NewPipeline(st Store, blobs blob.Store, fanout Scheduler, indexer Indexer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if indexer == nil {
		indexer = nopIndexer{}
	}
	return &Pipeline{
		store:   st,
		blobs:   blobs,
		fanout:  fanout,
		indexer: indexer,
		logger:  logger.With("component", "content"),
	}
}

type nopIndexer struct{}

func (nopIndexer) IndexMoment(store.Moment) {}
func (nopIndexer) DeleteMoment(int64)       {}

// postgresStore opens units of work on a PostgresStore.
type postgresStore struct {
	*store.PostgresStore
}

func NewPostgresStore(s *store.PostgresStore) Store {
	return postgresStore{PostgresStore: s}
}

func (s postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		return fn(ctx, q)
	})
}
