package store

import (
	"context"
	"fmt"
)

func (q *Queries) InsertUpload(ctx context.Context, objectKey string) (Upload, error) {
	upload := Upload{ObjectKey: objectKey}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO uploads (object_key) VALUES ($1)
		RETURNING id, created_at
	`, objectKey).Scan(&upload.ID, &upload.CreatedAt)
	if err != nil {
		return Upload{}, fmt.Errorf("insert upload: %w", err)
	}
	return upload, nil
}
