package content

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"moments/api/internal/apperr"
	"moments/api/internal/parser"
	"moments/api/internal/store"
)

// MomentView is a moment as shown to readers.
type MomentView struct {
	store.Moment
	Comments int64
}

// GetMoment loads a moment and counts the read as a view.
func (p *Pipeline) GetMoment(ctx context.Context, id int64) (MomentView, error) {
	if err := p.store.IncrementMomentViews(ctx, id); err != nil {
		return MomentView{}, notFoundOr(err, "moment not found", "count moment view")
	}
	m, err := p.store.MomentByID(ctx, id)
	if err != nil {
		return MomentView{}, notFoundOr(err, "moment not found", "load moment")
	}
	if m.Tags, err = p.store.MomentTags(ctx, id); err != nil {
		return MomentView{}, apperr.Internal("load moment tags", err)
	}
	comments, err := p.store.CountComments(ctx, id)
	if err != nil {
		return MomentView{}, apperr.Internal("count comments", err)
	}
	return MomentView{Moment: m, Comments: comments}, nil
}

// PictureURL returns a short-lived URL for the moment's picture.
func (p *Pipeline) PictureURL(ctx context.Context, momentID int64) (string, error) {
	m, err := p.store.MomentByID(ctx, momentID)
	if err != nil {
		return "", notFoundOr(err, "moment not found", "load moment")
	}
	u, err := p.blobs.URLFor(ctx, m.PictureKey)
	if err != nil {
		return "", apperr.Internal("sign picture url", err)
	}
	return u, nil
}

// UpdateMoment changes the title and/or description of the editor's own
// moment. A new description is re-parsed and its tag links replaced;
// mentions in an edit do not notify.
func (p *Pipeline) UpdateMoment(ctx context.Context, editor store.Identity, id int64, title, description *string) (store.Moment, error) {
	var updated store.Moment
	err := p.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		m, err := ownedMoment(ctx, repo, editor, id)
		if err != nil {
			return err
		}
		if title != nil {
			m.Title = strings.TrimSpace(*title)
		}
		if description != nil {
			m.Body = *description
		}
		if err := validateMoment(m.Title, m.Body); err != nil {
			return err
		}

		if description != nil {
			parsed, err := parser.Parse(ctx, m.Body, repo)
			if err != nil {
				return err
			}
			m.Rendered = parsed.Rendered
			if err := repo.ClearMomentTags(ctx, m.ID); err != nil {
				return err
			}
			for _, tag := range distinctTags(parsed.Tags) {
				if err := repo.LinkMomentTag(ctx, m.ID, tag.ID); err != nil {
					return err
				}
			}
		}

		if err := repo.UpdateMoment(ctx, m.ID, m.Title, m.Body, m.Rendered); err != nil {
			return err
		}
		if m.Tags, err = repo.MomentTags(ctx, m.ID); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return store.Moment{}, classify(err)
	}
	p.indexer.IndexMoment(updated)
	return updated, nil
}

// DeleteMoment removes the actor's own moment with its comments, likes and
// tag links. Ratings earned through them are released first. Content rows
// are locked before user rows, the same order relation changes take.
func (p *Pipeline) DeleteMoment(ctx context.Context, actor store.Identity, id int64) error {
	err := p.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		m, err := ownedMoment(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if err := repo.ReleaseCommentRatings(ctx, m.ID); err != nil {
			return err
		}
		if m.Likes != 0 {
			if err := repo.AdjustRating(ctx, m.AuthorID, -m.Likes); err != nil {
				return err
			}
		}
		return repo.DeleteMoment(ctx, m.ID)
	})
	if err != nil {
		return classify(err)
	}
	p.indexer.DeleteMoment(id)
	p.logger.InfoContext(ctx, "moment deleted", "moment_id", id, "author_id", actor.ID)
	return nil
}

func ownedMoment(ctx context.Context, repo Repository, actor store.Identity, id int64) (store.Moment, error) {
	m, err := repo.LockMoment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Moment{}, apperr.NotFound("moment not found")
	}
	if err != nil {
		return store.Moment{}, err
	}
	if m.AuthorID != actor.ID {
		return store.Moment{}, apperr.Forbidden("moment belongs to another user")
	}
	return m, nil
}

func (p *Pipeline) GetComment(ctx context.Context, id int64) (store.Comment, error) {
	c, err := p.store.CommentByID(ctx, id)
	if err != nil {
		return store.Comment{}, notFoundOr(err, "comment not found", "load comment")
	}
	return c, nil
}

// DeleteComment removes the actor's own comment.
func (p *Pipeline) DeleteComment(ctx context.Context, actor store.Identity, id int64) error {
	return classify(p.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.LockComment(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("comment not found")
		}
		if err != nil {
			return err
		}
		if c.AuthorID != actor.ID {
			return apperr.Forbidden("comment belongs to another user")
		}
		if c.Likes != 0 {
			if err := repo.AdjustRating(ctx, c.AuthorID, -c.Likes); err != nil {
				return err
			}
		}
		return repo.DeleteComment(ctx, c.ID)
	}))
}

// ListComments pages the comments under a moment, leaving out the viewer's own.
func (p *Pipeline) ListComments(ctx context.Context, viewer store.Identity, momentID, beforeID int64) ([]store.Comment, error) {
	if _, err := p.store.MomentByID(ctx, momentID); err != nil {
		return nil, notFoundOr(err, "moment not found", "load moment")
	}
	items, err := p.store.CommentsByMoment(ctx, momentID, viewer.ID, beforeID, CommentPageSize)
	if err != nil {
		return nil, apperr.Internal("list comments", err)
	}
	return items, nil
}

// MyComment returns the viewer's comment under a moment.
func (p *Pipeline) MyComment(ctx context.Context, viewer store.Identity, momentID int64) (store.Comment, error) {
	c, err := p.store.CommentByAuthor(ctx, momentID, viewer.ID)
	if err != nil {
		return store.Comment{}, notFoundOr(err, "comment not found", "load comment")
	}
	return c, nil
}

// UserMoments pages an author's moments newest first.
func (p *Pipeline) UserMoments(ctx context.Context, authorID, beforeID int64) ([]store.Moment, error) {
	if _, err := p.store.IdentityByID(ctx, authorID); err != nil {
		return nil, notFoundOr(err, "user not found", "load user")
	}
	items, err := p.store.MomentsByAuthor(ctx, authorID, beforeID, PageSize)
	if err != nil {
		return nil, apperr.Internal("list user moments", err)
	}
	return items, nil
}

// Feed pages moments by the authors the viewer subscribes to.
func (p *Pipeline) Feed(ctx context.Context, viewer store.Identity, beforeID int64) ([]store.Moment, error) {
	items, err := p.store.FeedMoments(ctx, viewer.ID, beforeID, PageSize)
	if err != nil {
		return nil, apperr.Internal("list feed", err)
	}
	return items, nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(op, err)
}
