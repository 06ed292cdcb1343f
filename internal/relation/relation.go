// Package relation toggles idempotent (subject, object) edges: moment likes,
// comment likes and subscriptions. Likes keep two derived counters in step
// with the edge count, the liked content's likes and its owner's rating.
package relation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"moments/api/internal/apperr"
	"moments/api/internal/store"
)

type Kind string

const (
	MomentLike   Kind = "moment_like"
	CommentLike  Kind = "comment_like"
	Subscription Kind = "subscription"
)

type Repository interface {
	InsertEdge(ctx context.Context, e store.Edge, subjectID, objectID int64) (bool, error)
	DeleteEdge(ctx context.Context, e store.Edge, subjectID, objectID int64) (bool, error)
	EdgeExists(ctx context.Context, e store.Edge, subjectID, objectID int64) (bool, error)

	IdentityByID(ctx context.Context, id int64) (store.Identity, error)
	MomentByID(ctx context.Context, id int64) (store.Moment, error)
	CommentByID(ctx context.Context, id int64) (store.Comment, error)

	AdjustMomentLikes(ctx context.Context, id, delta int64) error
	AdjustCommentLikes(ctx context.Context, id, delta int64) error
	AdjustRating(ctx context.Context, id, delta int64) error

	SubscribedAuthors(ctx context.Context, subscriberID int64) ([]store.Identity, error)
}

type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// edgeKind describes one relation type.
type edgeKind struct {
	edge store.Edge
	// owner loads the object and returns its owning identity.
	owner func(ctx context.Context, repo Repository, objectID int64) (int64, error)
	// count applies delta to the derived counters; nil when the kind has none.
	count func(ctx context.Context, repo Repository, objectID, ownerID, delta int64) error
	noun  string
}

var kinds = map[Kind]edgeKind{
	MomentLike: {
		edge: store.MomentLikes,
		noun: "moment",
		owner: func(ctx context.Context, repo Repository, objectID int64) (int64, error) {
			m, err := repo.MomentByID(ctx, objectID)
			return m.AuthorID, err
		},
		count: func(ctx context.Context, repo Repository, objectID, ownerID, delta int64) error {
			if err := repo.AdjustMomentLikes(ctx, objectID, delta); err != nil {
				return err
			}
			return repo.AdjustRating(ctx, ownerID, delta)
		},
	},
	CommentLike: {
		edge: store.CommentLikes,
		noun: "comment",
		owner: func(ctx context.Context, repo Repository, objectID int64) (int64, error) {
			c, err := repo.CommentByID(ctx, objectID)
			return c.AuthorID, err
		},
		count: func(ctx context.Context, repo Repository, objectID, ownerID, delta int64) error {
			if err := repo.AdjustCommentLikes(ctx, objectID, delta); err != nil {
				return err
			}
			return repo.AdjustRating(ctx, ownerID, delta)
		},
	},
	Subscription: {
		edge: store.Subscriptions,
		noun: "author",
		owner: func(ctx context.Context, repo Repository, objectID int64) (int64, error) {
			identity, err := repo.IdentityByID(ctx, objectID)
			return identity.ID, err
		},
	},
}

// errEdgeExists aborts a unit of work whose insert lost a uniqueness race.
var errEdgeExists = errors.New("edge already exists")

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(st Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger.With("component", "relation")}
}

func lookup(kind Kind) (edgeKind, error) {
	k, ok := kinds[kind]
	if !ok {
		return edgeKind{}, apperr.ValidationFailed(fmt.Sprintf("unknown relation %q", kind))
	}
	return k, nil
}

// Add creates the edge. It reports whether anything changed; an existing
// edge is a successful no-op.
func (s *Service) Add(ctx context.Context, kind Kind, subjectID, objectID int64) (bool, error) {
	k, err := lookup(kind)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		added = false
		ownerID, err := loadOwner(ctx, repo, k, objectID)
		if err != nil {
			return err
		}
		if ownerID == subjectID {
			return apperr.Forbidden(fmt.Sprintf("cannot relate to own %s", k.noun))
		}

		inserted, err := repo.InsertEdge(ctx, k.edge, subjectID, objectID)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return errEdgeExists
			}
			return err
		}
		if !inserted {
			return nil
		}
		if k.count != nil {
			if err := k.count(ctx, repo, objectID, ownerID, 1); err != nil {
				return err
			}
		}
		added = true
		return nil
	})
	if errors.Is(err, errEdgeExists) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	if added {
		s.logger.InfoContext(ctx, "relation added", "kind", string(kind), "subject_id", subjectID, "object_id", objectID)
	}
	return added, nil
}

// Remove deletes the edge. It reports whether anything changed; a missing
// edge is a successful no-op.
func (s *Service) Remove(ctx context.Context, kind Kind, subjectID, objectID int64) (bool, error) {
	k, err := lookup(kind)
	if err != nil {
		return false, err
	}

	var removed bool
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		removed = false
		ownerID, err := loadOwner(ctx, repo, k, objectID)
		if err != nil {
			return err
		}
		deleted, err := repo.DeleteEdge(ctx, k.edge, subjectID, objectID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		if k.count != nil {
			if err := k.count(ctx, repo, objectID, ownerID, -1); err != nil {
				return err
			}
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, classify(err)
	}
	if removed {
		s.logger.InfoContext(ctx, "relation removed", "kind", string(kind), "subject_id", subjectID, "object_id", objectID)
	}
	return removed, nil
}

// Exists reports whether the edge is present. The object must exist.
func (s *Service) Exists(ctx context.Context, kind Kind, subjectID, objectID int64) (bool, error) {
	k, err := lookup(kind)
	if err != nil {
		return false, err
	}
	if _, err := loadOwner(ctx, s.store, k, objectID); err != nil {
		return false, classify(err)
	}
	exists, err := s.store.EdgeExists(ctx, k.edge, subjectID, objectID)
	if err != nil {
		return false, apperr.Internal("check relation", err)
	}
	return exists, nil
}

// Subscriptions lists the authors the subscriber follows.
func (s *Service) Subscriptions(ctx context.Context, subscriberID int64) ([]store.Identity, error) {
	authors, err := s.store.SubscribedAuthors(ctx, subscriberID)
	if err != nil {
		return nil, apperr.Internal("list subscriptions", err)
	}
	return authors, nil
}

func loadOwner(ctx context.Context, repo Repository, k edgeKind, objectID int64) (int64, error) {
	ownerID, err := k.owner(ctx, repo, objectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound(k.noun + " not found")
	}
	return ownerID, err
}

func classify(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if store.IsForeignKeyViolation(err) {
		return apperr.Wrap(apperr.KindNotFound, "related object not found", err)
	}
	return apperr.Internal("toggle relation", err)
}

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
