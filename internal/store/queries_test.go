package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET rating").
		WithArgs(int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(ctx context.Context, q *Queries) error {
		return q.AdjustRating(ctx, 1, 1)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(ctx context.Context, q *Queries) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(ctx context.Context, q *Queries) error {
			panic("kaboom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEdgeReportsInsertion(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO moment_likes \\(user_id, moment_id\\) VALUES \\(\\$1, \\$2\\) ON CONFLICT DO NOTHING").
		WithArgs(int64(2), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO moment_likes").
		WithArgs(int64(2), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := q.InsertEdge(ctx, MomentLikes, 2, 10)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = q.InsertEdge(ctx, MomentLikes, 2, 10)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEdgeReportsDeletion(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)

	mock.ExpectExec("DELETE FROM subscriptions WHERE subscriber_id = \\$1 AND author_id = \\$2").
		WithArgs(int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := q.DeleteEdge(context.Background(), Subscriptions, 3, 4)
	require.NoError(t, err)
	require.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByHandle(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM users WHERE nickname = \\$1").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("SELECT id FROM users WHERE nickname = \\$1").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	id, found, err := q.FindByHandle(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(7), id)

	_, found, err = q.FindByHandle(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTagReturnsExistingID(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)

	mock.ExpectQuery("INSERT INTO tags \\(name\\) VALUES \\(\\$1\\)\\s+ON CONFLICT \\(name\\) DO UPDATE").
		WithArgs("cats").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, err := q.UpsertTag(context.Background(), "cats")
	require.NoError(t, err)
	require.Equal(t, int64(5), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowIsNoRows(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)

	mock.ExpectExec("UPDATE moments SET likes").
		WithArgs(int64(99), int64(-1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := q.AdjustMomentLikes(context.Background(), 99, -1)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNotificationNullableColumns(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)
	momentID := int64(12)

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(int64(3), "hello", nil, int64(12), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	n, err := q.InsertNotification(context.Background(), Notification{RecipientID: 3, Text: "hello", MomentID: &momentID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n.ID)
	require.Nil(t, n.ActorID)
	require.Equal(t, int64(12), *n.MomentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert comment: %w", &pgconn.PgError{Code: "23505"})
	fk := fmt.Errorf("insert comment: %w", &pgconn.PgError{Code: "23503"})

	require.True(t, IsUniqueViolation(unique))
	require.False(t, IsForeignKeyViolation(unique))
	require.True(t, IsForeignKeyViolation(fk))
	require.False(t, IsUniqueViolation(errors.New("other")))
}

func TestMomentsWithTagsSplitsAggregatedNames(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("FROM moments m").
		WithArgs(int64(0), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "nickname", "title", "body", "created_at", "tags"}).
			AddRow(int64(1), int64(7), "alice", "sea", "#sea #sun", created, "sea,sun").
			AddRow(int64(2), int64(7), "alice", "plain", "no tags", created, ""))

	items, err := q.MomentsWithTags(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []string{"sea", "sun"}, items[0].Tags)
	require.Equal(t, "alice", items[0].AuthorNickname)
	require.Empty(t, items[1].Tags)
	require.NotNil(t, items[1].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReadsTakeRowLocks(t *testing.T) {
	db, mock := newMock(t)
	q := New(db)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`WHERE c\.id = \$1 FOR UPDATE OF c`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "moment_id", "author_id", "nickname", "body", "rendered", "likes", "created_at"}).
			AddRow(int64(5), int64(9), int64(2), "bob", "hi", "hi", int64(3), created))
	mock.ExpectQuery(`WHERE m\.id = \$1 FOR UPDATE OF m`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`FROM comments\s+WHERE moment_id = \$1\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, err := q.LockComment(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(3), c.Likes)

	_, err = q.LockMoment(context.Background(), 9)
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, q.ReleaseCommentRatings(context.Background(), 9))
	require.NoError(t, mock.ExpectationsWereMet())
}
