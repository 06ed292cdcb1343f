package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"moments/api/internal/apperr"
	"moments/api/internal/parser"
	"moments/api/internal/store"
)

// draft is one content variant on its way into storage.
type draft interface {
	// prepare binds prerequisites and rejects invalid parents or duplicates.
	prepare(ctx context.Context, repo Repository) error
	insert(ctx context.Context, repo Repository, rendered string) (Likeable, error)
	linkTag(ctx context.Context, repo Repository, contentID, tagID int64) error
	notification(recipientID int64, created Likeable) store.Notification
}

// create runs the shared authoring unit of work and schedules delivery of
// the recorded notifications once it has committed.
func (p *Pipeline) create(ctx context.Context, body string, d draft) (Likeable, parser.Result, error) {
	var (
		created       Likeable
		parsed        parser.Result
		notifications []store.Notification
	)
	err := p.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		notifications = notifications[:0]

		if err := d.prepare(ctx, repo); err != nil {
			return err
		}

		var err error
		parsed, err = parser.Parse(ctx, body, repo)
		if err != nil {
			return err
		}

		created, err = d.insert(ctx, repo, parsed.Rendered)
		if err != nil {
			return err
		}

		for _, tag := range distinctTags(parsed.Tags) {
			if err := d.linkTag(ctx, repo, created.ContentID(), tag.ID); err != nil {
				return err
			}
		}

		for _, recipientID := range distinctIDs(parsed.Recipients) {
			n, err := repo.InsertNotification(ctx, d.notification(recipientID, created))
			if err != nil {
				return err
			}
			notifications = append(notifications, n)
		}
		return nil
	})
	if err != nil {
		return nil, parser.Result{}, classify(err)
	}

	if len(notifications) > 0 {
		p.fanout.Schedule(ctx, notifications)
	}
	return created, parsed, nil
}

// CreateMoment stores the picture, then records the moment, its tags and
// mention notifications atomically.
func (p *Pipeline) CreateMoment(ctx context.Context, author store.Identity, in MomentInput) (store.Moment, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateMoment(title, in.Description); err != nil {
		return store.Moment{}, err
	}
	if in.Picture.Body == nil || in.Picture.Size <= 0 {
		return store.Moment{}, apperr.ValidationFailed("picture is required")
	}

	key, err := p.blobs.Put(ctx, in.Picture.Filename, in.Picture.Body, in.Picture.Size, in.Picture.ContentType)
	if err != nil {
		return store.Moment{}, apperr.Internal("store picture", err)
	}

	d := &momentDraft{author: author, title: title, description: in.Description, pictureKey: key}
	created, parsed, err := p.create(ctx, in.Description, d)
	if err != nil {
		p.discardBlob(ctx, key)
		return store.Moment{}, err
	}

	m := created.(store.Moment)
	m.Tags = tagNames(parsed.Tags)
	p.indexer.IndexMoment(m)
	p.logger.InfoContext(ctx, "moment created", "moment_id", m.ID, "author_id", author.ID, "mentions", len(parsed.Recipients))
	return m, nil
}

// CreateComment records a comment under momentID. Each author may comment
// once per moment.
func (p *Pipeline) CreateComment(ctx context.Context, author store.Identity, momentID int64, text string) (store.Comment, error) {
	if err := validateComment(text); err != nil {
		return store.Comment{}, err
	}

	d := &commentDraft{author: author, momentID: momentID, text: text}
	created, parsed, err := p.create(ctx, text, d)
	if err != nil {
		return store.Comment{}, err
	}

	c := created.(store.Comment)
	p.logger.InfoContext(ctx, "comment created", "comment_id", c.ID, "moment_id", momentID, "author_id", author.ID, "mentions", len(parsed.Recipients))
	return c, nil
}

func (p *Pipeline) discardBlob(ctx context.Context, key string) {
	if err := p.blobs.Remove(context.WithoutCancel(ctx), key); err != nil {
		p.logger.WarnContext(ctx, "orphaned upload not removed", "object_key", key, "error", err)
	}
}

type momentDraft struct {
	author      store.Identity
	title       string
	description string
	pictureKey  string
	pictureID   int64
}

func (d *momentDraft) prepare(ctx context.Context, repo Repository) error {
	upload, err := repo.InsertUpload(ctx, d.pictureKey)
	if err != nil {
		return err
	}
	d.pictureID = upload.ID
	return nil
}

func (d *momentDraft) insert(ctx context.Context, repo Repository, rendered string) (Likeable, error) {
	m, err := repo.InsertMoment(ctx, store.Moment{
		AuthorID:  d.author.ID,
		Title:     d.title,
		Body:      d.description,
		Rendered:  rendered,
		PictureID: d.pictureID,
	})
	if err != nil {
		return nil, err
	}
	m.AuthorNickname = d.author.Nickname
	m.PictureKey = d.pictureKey
	return m, nil
}

func (d *momentDraft) linkTag(ctx context.Context, repo Repository, contentID, tagID int64) error {
	return repo.LinkMomentTag(ctx, contentID, tagID)
}

func (d *momentDraft) notification(recipientID int64, created Likeable) store.Notification {
	momentID := created.ContentID()
	actorID := d.author.ID
	return store.Notification{
		RecipientID: recipientID,
		Text: fmt.Sprintf(`User <a href="/user/%d">@%s</a> mentioned you in a <a href="/moment/%d">moment</a>`,
			d.author.ID, html.EscapeString(d.author.Nickname), momentID),
		ActorID:  &actorID,
		MomentID: &momentID,
	}
}

type commentDraft struct {
	author   store.Identity
	momentID int64
	text     string
}

func (d *commentDraft) prepare(ctx context.Context, repo Repository) error {
	if _, err := repo.MomentByID(ctx, d.momentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("moment not found")
		}
		return err
	}
	exists, err := repo.CommentExists(ctx, d.momentID, d.author.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Conflict("comment already exists")
	}
	return nil
}

func (d *commentDraft) insert(ctx context.Context, repo Repository, rendered string) (Likeable, error) {
	c, err := repo.InsertComment(ctx, store.Comment{
		MomentID: d.momentID,
		AuthorID: d.author.ID,
		Body:     d.text,
		Rendered: rendered,
	})
	if err != nil {
		return nil, err
	}
	c.AuthorNickname = d.author.Nickname
	return c, nil
}

func (d *commentDraft) linkTag(ctx context.Context, repo Repository, contentID, tagID int64) error {
	return repo.LinkCommentTag(ctx, contentID, tagID)
}

func (d *commentDraft) notification(recipientID int64, created Likeable) store.Notification {
	momentID := d.momentID
	commentID := created.ContentID()
	actorID := d.author.ID
	return store.Notification{
		RecipientID: recipientID,
		Text: fmt.Sprintf(`User <a href="/user/%d">@%s</a> mentioned you in a comment on a <a href="/moment/%d">moment</a>`,
			d.author.ID, html.EscapeString(d.author.Nickname), momentID),
		ActorID:   &actorID,
		MomentID:  &momentID,
		CommentID: &commentID,
	}
}

// classify maps storage faults escaping a unit of work onto the error taxonomy.
func classify(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case store.IsUniqueViolation(err):
		return apperr.Wrap(apperr.KindConflict, "content already exists", err)
	case store.IsForeignKeyViolation(err), errors.Is(err, sql.ErrNoRows):
		return apperr.Wrap(apperr.KindNotFound, "referenced content not found", err)
	default:
		return apperr.Internal("store content", err)
	}
}

func validateMoment(title, description string) error {
	if title == "" {
		return apperr.ValidationFailed("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperr.ValidationFailed(fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperr.ValidationFailed(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

func validateComment(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.ValidationFailed("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return apperr.ValidationFailed(fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	return nil
}

func distinctTags(tags []parser.Tag) []parser.Tag {
	seen := make(map[int64]bool, len(tags))
	out := make([]parser.Tag, 0, len(tags))
	for _, tag := range tags {
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		out = append(out, tag)
	}
	return out
}

func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func tagNames(tags []parser.Tag) []string {
	names := []string{}
	for _, tag := range distinctTags(tags) {
		names = append(names, tag.Name)
	}
	return names
}
