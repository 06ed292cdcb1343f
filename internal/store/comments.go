package store

import (
	"context"
	"fmt"
)

const commentSelect = `
	SELECT c.id, c.moment_id, c.author_id, u.nickname, c.body, c.rendered, c.likes, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row interface{ Scan(...any) error }) (Comment, error) {
	var c Comment
	err := row.Scan(
		&c.ID,
		&c.MomentID,
		&c.AuthorID,
		&c.AuthorNickname,
		&c.Body,
		&c.Rendered,
		&c.Likes,
		&c.CreatedAt,
	)
	return c, err
}

func (q *Queries) InsertComment(ctx context.Context, c Comment) (Comment, error) {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (moment_id, author_id, body, rendered)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.MomentID, c.AuthorID, c.Body, c.Rendered).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (q *Queries) CommentByID(ctx context.Context, id int64) (Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return Comment{}, fmt.Errorf("get comment %d: %w", id, err)
	}
	return c, nil
}

func (q *Queries) LockComment(ctx context.Context, id int64) (Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1 FOR UPDATE OF c`, id))
	if err != nil {
		return Comment{}, fmt.Errorf("lock comment %d: %w", id, err)
	}
	return c, nil
}

func (q *Queries) CommentByAuthor(ctx context.Context, momentID, authorID int64) (Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, commentSelect+` WHERE c.moment_id = $1 AND c.author_id = $2`, momentID, authorID))
	if err != nil {
		return Comment{}, fmt.Errorf("get author comment: %w", err)
	}
	return c, nil
}

func (q *Queries) CommentExists(ctx context.Context, momentID, authorID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM comments WHERE moment_id = $1 AND author_id = $2)
	`, momentID, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check comment exists: %w", err)
	}
	return exists, nil
}

// CommentsByMoment pages a moment's comments newest first, leaving out the
// viewer's own comment.
func (q *Queries) CommentsByMoment(ctx context.Context, momentID, excludeAuthorID, beforeID int64, limit int) ([]Comment, error) {
	rows, err := q.db.QueryContext(ctx, commentSelect+`
		WHERE c.moment_id = $1 AND c.author_id <> $2 AND ($3::bigint = 0 OR c.id < $3)
		ORDER BY c.id DESC
		LIMIT $4
	`, momentID, excludeAuthorID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list moment comments: %w", err)
	}
	defer rows.Close()

	items := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) CountComments(ctx context.Context, momentID int64) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE moment_id = $1`, momentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func (q *Queries) AdjustCommentLikes(ctx context.Context, id, delta int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE comments SET likes = likes + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust comment likes: %w", err)
	}
	return requireRow(result, "adjust comment likes")
}

// ReleaseCommentRatings takes the likes of every comment under the moment
// back out of the comment authors' ratings, ahead of a cascading delete.
// The comment rows are locked before any user row.
func (q *Queries) ReleaseCommentRatings(ctx context.Context, momentID int64) error {
	if _, err := q.db.ExecContext(ctx, `
		UPDATE users u SET rating = u.rating - agg.likes
		FROM (
			SELECT author_id, SUM(likes) AS likes
			FROM (
				SELECT author_id, likes FROM comments
				WHERE moment_id = $1
				ORDER BY id
				FOR UPDATE
			) locked
			GROUP BY author_id
		) agg
		WHERE u.id = agg.author_id
	`, momentID); err != nil {
		return fmt.Errorf("release comment ratings: %w", err)
	}
	return nil
}

func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireRow(result, "delete comment")
}
