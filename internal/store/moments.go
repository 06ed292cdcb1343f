package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const momentSelect = `
	SELECT m.id, m.author_id, u.nickname, m.title, m.body, m.rendered,
		m.picture_id, p.object_key, m.views, m.likes, m.created_at
	FROM moments m
	JOIN users u ON u.id = m.author_id
	JOIN uploads p ON p.id = m.picture_id`

func scanMoment(row interface{ Scan(...any) error }) (Moment, error) {
	var m Moment
	err := row.Scan(
		&m.ID,
		&m.AuthorID,
		&m.AuthorNickname,
		&m.Title,
		&m.Body,
		&m.Rendered,
		&m.PictureID,
		&m.PictureKey,
		&m.Views,
		&m.Likes,
		&m.CreatedAt,
	)
	return m, err
}

func (q *Queries) InsertMoment(ctx context.Context, m Moment) (Moment, error) {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO moments (author_id, title, body, rendered, picture_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.AuthorID, m.Title, m.Body, m.Rendered, m.PictureID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Moment{}, fmt.Errorf("insert moment: %w", err)
	}
	return m, nil
}

func (q *Queries) MomentByID(ctx context.Context, id int64) (Moment, error) {
	m, err := scanMoment(q.db.QueryRowContext(ctx, momentSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return Moment{}, fmt.Errorf("get moment %d: %w", id, err)
	}
	return m, nil
}

// LockMoment reads the moment and holds its row lock until the transaction
// ends, so likes cannot change underneath a delete.
func (q *Queries) LockMoment(ctx context.Context, id int64) (Moment, error) {
	m, err := scanMoment(q.db.QueryRowContext(ctx, momentSelect+` WHERE m.id = $1 FOR UPDATE OF m`, id))
	if err != nil {
		return Moment{}, fmt.Errorf("lock moment %d: %w", id, err)
	}
	return m, nil
}

func (q *Queries) IncrementMomentViews(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE moments SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment moment views: %w", err)
	}
	return requireRow(result, "increment moment views")
}

func (q *Queries) AdjustMomentLikes(ctx context.Context, id, delta int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE moments SET likes = likes + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust moment likes: %w", err)
	}
	return requireRow(result, "adjust moment likes")
}

func (q *Queries) UpdateMoment(ctx context.Context, id int64, title, body, rendered string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE moments SET title = $2, body = $3, rendered = $4 WHERE id = $1
	`, id, title, body, rendered)
	if err != nil {
		return fmt.Errorf("update moment: %w", err)
	}
	return requireRow(result, "update moment")
}

func (q *Queries) DeleteMoment(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM moments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete moment: %w", err)
	}
	return requireRow(result, "delete moment")
}

// MomentsByAuthor pages an author's moments newest first. beforeID 0 starts at the newest.
func (q *Queries) MomentsByAuthor(ctx context.Context, authorID, beforeID int64, limit int) ([]Moment, error) {
	rows, err := q.db.QueryContext(ctx, momentSelect+`
		WHERE m.author_id = $1 AND ($2::bigint = 0 OR m.id < $2)
		ORDER BY m.id DESC
		LIMIT $3
	`, authorID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list author moments: %w", err)
	}
	return collectMoments(rows)
}

// FeedMoments pages moments by authors the subscriber follows.
func (q *Queries) FeedMoments(ctx context.Context, subscriberID, beforeID int64, limit int) ([]Moment, error) {
	rows, err := q.db.QueryContext(ctx, momentSelect+`
		JOIN subscriptions s ON s.author_id = m.author_id
		WHERE s.subscriber_id = $1 AND ($2::bigint = 0 OR m.id < $2)
		ORDER BY m.id DESC
		LIMIT $3
	`, subscriberID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list feed moments: %w", err)
	}
	return collectMoments(rows)
}

// MomentsByTag pages moments linked to the named tag.
func (q *Queries) MomentsByTag(ctx context.Context, tag string, beforeID int64, limit int) ([]Moment, error) {
	rows, err := q.db.QueryContext(ctx, momentSelect+`
		JOIN moment_tags mt ON mt.moment_id = m.id
		JOIN tags t ON t.id = mt.tag_id
		WHERE t.name = $1 AND ($2::bigint = 0 OR m.id < $2)
		ORDER BY m.id DESC
		LIMIT $3
	`, tag, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tag moments: %w", err)
	}
	return collectMoments(rows)
}

func collectMoments(rows *sql.Rows) ([]Moment, error) {
	defer rows.Close()
	items := []Moment{}
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan moment: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// MomentsWithTags pages moments in ascending id order with their tag names
// attached. Bodies are the raw descriptions; pictures are not loaded.
func (q *Queries) MomentsWithTags(ctx context.Context, afterID int64, limit int) ([]Moment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.author_id, u.nickname, m.title, m.body, m.created_at,
			coalesce(string_agg(t.name, ',' ORDER BY t.name), '')
		FROM moments m
		JOIN users u ON u.id = m.author_id
		LEFT JOIN moment_tags mt ON mt.moment_id = m.id
		LEFT JOIN tags t ON t.id = mt.tag_id
		WHERE m.id > $1
		GROUP BY m.id, u.nickname
		ORDER BY m.id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list moments with tags: %w", err)
	}
	defer rows.Close()

	items := []Moment{}
	for rows.Next() {
		var (
			m    Moment
			tags string
		)
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.AuthorNickname, &m.Title, &m.Body, &m.CreatedAt, &tags); err != nil {
			return nil, fmt.Errorf("scan moment with tags: %w", err)
		}
		m.Tags = []string{}
		if tags != "" {
			m.Tags = strings.Split(tags, ",")
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
