package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const identityColumns = `u.id, u.email, u.nickname, u.password, u.rating, COALESCE(a.object_key, ''), u.created_at`

const identitySelect = `SELECT ` + identityColumns + ` FROM users u LEFT JOIN uploads a ON a.id = u.avatar_id`

func scanIdentity(row interface{ Scan(...any) error }) (Identity, error) {
	var identity Identity
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.Nickname,
		&identity.PasswordHash,
		&identity.Rating,
		&identity.AvatarKey,
		&identity.CreatedAt,
	)
	return identity, err
}

func (q *Queries) InsertIdentity(ctx context.Context, email, nickname, passwordHash string) (Identity, error) {
	identity := Identity{Email: email, Nickname: nickname, PasswordHash: passwordHash}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, nickname, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, email, nickname, passwordHash).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		return Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return identity, nil
}

func (q *Queries) IdentityByID(ctx context.Context, id int64) (Identity, error) {
	identity, err := scanIdentity(q.db.QueryRowContext(ctx, identitySelect+` WHERE u.id = $1`, id))
	if err != nil {
		return Identity{}, fmt.Errorf("get identity %d: %w", id, err)
	}
	return identity, nil
}

func (q *Queries) IdentityByNickname(ctx context.Context, nickname string) (Identity, error) {
	identity, err := scanIdentity(q.db.QueryRowContext(ctx, identitySelect+` WHERE u.nickname = $1`, nickname))
	if err != nil {
		return Identity{}, fmt.Errorf("get identity by nickname: %w", err)
	}
	return identity, nil
}

func (q *Queries) IdentityByEmail(ctx context.Context, email string) (Identity, error) {
	identity, err := scanIdentity(q.db.QueryRowContext(ctx, identitySelect+` WHERE u.email = $1`, email))
	if err != nil {
		return Identity{}, fmt.Errorf("get identity by email: %w", err)
	}
	return identity, nil
}

// FindByHandle resolves a normalized nickname to an identity id.
func (q *Queries) FindByHandle(ctx context.Context, handle string) (int64, bool, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `SELECT id FROM users WHERE nickname = $1`, handle).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find handle: %w", err)
	}
	return id, true, nil
}

func (q *Queries) UpdateIdentityProfile(ctx context.Context, id int64, email, nickname string) error {
	result, err := q.db.ExecContext(ctx, `UPDATE users SET email = $2, nickname = $3 WHERE id = $1`, id, email, nickname)
	if err != nil {
		return fmt.Errorf("update identity profile: %w", err)
	}
	return requireRow(result, "update identity profile")
}

func (q *Queries) UpdateIdentityPassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := q.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update identity password: %w", err)
	}
	return requireRow(result, "update identity password")
}

func (q *Queries) SetIdentityAvatar(ctx context.Context, id, uploadID int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE users SET avatar_id = $2 WHERE id = $1`, id, uploadID)
	if err != nil {
		return fmt.Errorf("set identity avatar: %w", err)
	}
	return requireRow(result, "set identity avatar")
}

func (q *Queries) AdjustRating(ctx context.Context, id, delta int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE users SET rating = rating + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust rating: %w", err)
	}
	return requireRow(result, "adjust rating")
}

// requireRow maps an update that touched nothing to sql.ErrNoRows.
func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
