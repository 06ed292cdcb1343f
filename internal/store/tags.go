package store

import (
	"context"
	"fmt"
)

// UpsertTag returns the id of the tag with the given name, creating it if
// absent. Concurrent upserts of one name resolve to the same row.
func (q *Queries) UpsertTag(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert tag: %w", err)
	}
	return id, nil
}

func (q *Queries) LinkMomentTag(ctx context.Context, momentID, tagID int64) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO moment_tags (moment_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, momentID, tagID); err != nil {
		return fmt.Errorf("link moment tag: %w", err)
	}
	return nil
}

func (q *Queries) ClearMomentTags(ctx context.Context, momentID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM moment_tags WHERE moment_id = $1`, momentID); err != nil {
		return fmt.Errorf("clear moment tags: %w", err)
	}
	return nil
}

func (q *Queries) LinkCommentTag(ctx context.Context, commentID, tagID int64) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO comment_tags (comment_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, commentID, tagID); err != nil {
		return fmt.Errorf("link comment tag: %w", err)
	}
	return nil
}

func (q *Queries) MomentTags(ctx context.Context, momentID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.name FROM moment_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE mt.moment_id = $1
		ORDER BY t.name
	`, momentID)
	if err != nil {
		return nil, fmt.Errorf("list moment tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan moment tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
