package store

import (
	"context"
	"fmt"
)

// Edge names a relation table and its (subject, object) columns.
// Only the package-level edges are valid; their names are interpolated into SQL.
type Edge struct {
	Table         string
	SubjectColumn string
	ObjectColumn  string
}

var (
	MomentLikes   = Edge{Table: "moment_likes", SubjectColumn: "user_id", ObjectColumn: "moment_id"}
	CommentLikes  = Edge{Table: "comment_likes", SubjectColumn: "user_id", ObjectColumn: "comment_id"}
	Subscriptions = Edge{Table: "subscriptions", SubjectColumn: "subscriber_id", ObjectColumn: "author_id"}
)

// InsertEdge creates the pair and reports whether a row was actually inserted.
func (q *Queries) InsertEdge(ctx context.Context, e Edge, subjectID, objectID int64) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		e.Table, e.SubjectColumn, e.ObjectColumn)
	result, err := q.db.ExecContext(ctx, query, subjectID, objectID)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", e.Table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s rows: %w", e.Table, err)
	}
	return affected == 1, nil
}

// DeleteEdge removes the pair and reports whether a row was actually deleted.
func (q *Queries) DeleteEdge(ctx context.Context, e Edge, subjectID, objectID int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		e.Table, e.SubjectColumn, e.ObjectColumn)
	result, err := q.db.ExecContext(ctx, query, subjectID, objectID)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", e.Table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s rows: %w", e.Table, err)
	}
	return affected == 1, nil
}

func (q *Queries) EdgeExists(ctx context.Context, e Edge, subjectID, objectID int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`,
		e.Table, e.SubjectColumn, e.ObjectColumn)
	var exists bool
	if err := q.db.QueryRowContext(ctx, query, subjectID, objectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", e.Table, err)
	}
	return exists, nil
}

// SubscribedAuthors lists the identities the subscriber follows.
func (q *Queries) SubscribedAuthors(ctx context.Context, subscriberID int64) ([]Identity, error) {
	rows, err := q.db.QueryContext(ctx, identitySelect+`
		JOIN subscriptions s ON s.author_id = u.id
		WHERE s.subscriber_id = $1
		ORDER BY s.created_at DESC
	`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	items := []Identity{}
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		items = append(items, identity)
	}
	return items, rows.Err()
}
