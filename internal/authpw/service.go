// Package authpw registers identities and manages their credentials and
// profiles. Passwords are hashed and tokens issued by the auth authority.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"moments/api/internal/apperr"
	"moments/api/internal/blob"
	"moments/api/internal/parser"
	"moments/api/internal/store"
)

const (
	MinPasswordLength = 8
	MaxHandleLength   = 100
	MaxEmailLength    = 255
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Credentials is the part of the token authority this service needs.
type Credentials interface {
	Crypt(ctx context.Context, password string) string
	Verify(ctx context.Context, password, hash string) bool
	Issue(ctx context.Context, identity store.Identity) (string, error)
	InvalidateCache(ctx context.Context, identityID int64)
}

// IdentityStore defines the storage interface for identities.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, email, nickname, passwordHash string) (store.Identity, error)
	IdentityByID(ctx context.Context, id int64) (store.Identity, error)
	IdentityByNickname(ctx context.Context, nickname string) (store.Identity, error)
	IdentityByEmail(ctx context.Context, email string) (store.Identity, error)
	UpdateIdentityProfile(ctx context.Context, id int64, email, nickname string) error
	UpdateIdentityPassword(ctx context.Context, id int64, passwordHash string) error
	InsertUpload(ctx context.Context, objectKey string) (store.Upload, error)
	SetIdentityAvatar(ctx context.Context, id, uploadID int64) error
}

type Store interface {
	IdentityStore
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo IdentityStore) error) error
}

// Service provides registration, sign-in and profile management.
type Service struct {
	store         Store
	credentials   Credentials
	blobs         blob.Store
	defaultAvatar string
	logger        *slog.Logger
}

type Options struct {
	Blobs blob.Store
	// DefaultAvatar is the object key served to identities without an avatar.
	DefaultAvatar string
	Logger        *slog.Logger
}

func NewService(st Store, credentials Credentials, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:         st,
		credentials:   credentials,
		blobs:         opts.Blobs,
		defaultAvatar: opts.DefaultAvatar,
		logger:        opts.Logger.With("component", "identity"),
	}
}

// RegisterRequest contains sign-up parameters.
type RegisterRequest struct {
	Email    string
	Nickname string
	Password string
}

// Register creates a new identity. Duplicate emails or nicknames are a
// Conflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.Identity, error) {
	email, nickname, err := validateProfile(req.Email, req.Nickname)
	if err != nil {
		return store.Identity{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return store.Identity{}, err
	}

	identity, err := s.store.InsertIdentity(ctx, email, nickname, s.credentials.Crypt(ctx, req.Password))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.Identity{}, apperr.Conflict("email or nickname already registered")
		}
		return store.Identity{}, apperr.Internal("create identity", err)
	}
	s.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID)
	return identity, nil
}

// SignIn authenticates by nickname, then by email, and returns a session
// token. Unknown logins and wrong passwords are indistinguishable.
func (s *Service) SignIn(ctx context.Context, login, password string) (string, error) {
	if login == "" || password == "" {
		return "", apperr.ValidationFailed("login and password are required")
	}

	identity, err := s.store.IdentityByNickname(ctx, login)
	if errors.Is(err, sql.ErrNoRows) {
		identity, err = s.store.IdentityByEmail(ctx, login)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Unauthorized("invalid login or password")
	}
	if err != nil {
		return "", apperr.Internal("load identity", err)
	}

	if !s.credentials.Verify(ctx, password, identity.PasswordHash) {
		return "", apperr.Unauthorized("invalid login or password")
	}
	return s.credentials.Issue(ctx, identity)
}

// Identity loads a public profile.
func (s *Service) Identity(ctx context.Context, id int64) (store.Identity, error) {
	identity, err := s.store.IdentityByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Identity{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return store.Identity{}, apperr.Internal("load identity", err)
	}
	return identity, nil
}

// UpdateProfile changes email and/or nickname; nil leaves a field as is.
func (s *Service) UpdateProfile(ctx context.Context, actor store.Identity, email, nickname *string) (store.Identity, error) {
	next := actor
	if email != nil {
		next.Email = *email
	}
	if nickname != nil {
		next.Nickname = *nickname
	}
	var err error
	if next.Email, next.Nickname, err = validateProfile(next.Email, next.Nickname); err != nil {
		return store.Identity{}, err
	}

	if err := s.store.UpdateIdentityProfile(ctx, actor.ID, next.Email, next.Nickname); err != nil {
		switch {
		case store.IsUniqueViolation(err):
			return store.Identity{}, apperr.Conflict("email or nickname already registered")
		case errors.Is(err, sql.ErrNoRows):
			return store.Identity{}, apperr.NotFound("user not found")
		}
		return store.Identity{}, apperr.Internal("update profile", err)
	}
	return next, nil
}

// ChangePassword replaces the credential hash. Every token issued before the
// change stops validating.
func (s *Service) ChangePassword(ctx context.Context, actor store.Identity, current, next string) error {
	if !s.credentials.Verify(ctx, current, actor.PasswordHash) {
		return apperr.ValidationFailed("current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	s.credentials.InvalidateCache(ctx, actor.ID)
	if err := s.store.UpdateIdentityPassword(ctx, actor.ID, s.credentials.Crypt(ctx, next)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("update password", err)
	}
	s.logger.InfoContext(ctx, "password changed", "identity_id", actor.ID)
	return nil
}

// Avatar is an uploaded image.
type Avatar struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateAvatar stores the image and points the identity at it. The object is
// removed again when the database write fails.
func (s *Service) UpdateAvatar(ctx context.Context, actor store.Identity, avatar Avatar) error {
	if s.blobs == nil {
		return apperr.Internal("update avatar", errors.New("blob storage not configured"))
	}
	if avatar.Body == nil || avatar.Filename == "" {
		return apperr.ValidationFailed("avatar file is required")
	}

	key, err := s.blobs.Put(ctx, avatar.Filename, avatar.Body, avatar.Size, avatar.ContentType)
	if err != nil {
		return apperr.Internal("store avatar", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo IdentityStore) error {
		upload, err := repo.InsertUpload(ctx, key)
		if err != nil {
			return err
		}
		return repo.SetIdentityAvatar(ctx, actor.ID, upload.ID)
	})
	if err != nil {
		if rmErr := s.blobs.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.logger.WarnContext(ctx, "discard avatar object", "key", key, "error", rmErr)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("update avatar", err)
	}
	return nil
}

// AvatarURL returns a download link for the identity's avatar, or for the
// default avatar when none is set.
func (s *Service) AvatarURL(ctx context.Context, id int64) (string, error) {
	identity, err := s.Identity(ctx, id)
	if err != nil {
		return "", err
	}
	if s.blobs == nil {
		return "", apperr.Internal("avatar url", errors.New("blob storage not configured"))
	}
	key := identity.AvatarKey
	if key == "" {
		key = s.defaultAvatar
	}
	if key == "" {
		return "", apperr.NotFound("avatar not found")
	}
	url, err := s.blobs.URLFor(ctx, key)
	if err != nil {
		return "", apperr.Internal("avatar url", err)
	}
	return url, nil
}

func validateProfile(email, nickname string) (string, string, error) {
	email = strings.TrimSpace(email)
	if len(email) > MaxEmailLength || !emailPattern.MatchString(email) {
		return "", "", apperr.ValidationFailed("invalid email")
	}
	nickname = parser.NormalizeHandle(nickname)
	if nickname == "" || len([]rune(nickname)) > MaxHandleLength {
		return "", "", apperr.ValidationFailed("invalid nickname")
	}
	return email, nickname, nil
}

// validatePassword requires a minimum length and mixed character classes.
func validatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return apperr.ValidationFailed("password must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.ValidationFailed("password must mix upper-case, lower-case and digits")
	}
	return nil
}

// postgresStore opens units of work on a PostgresStore.
type postgresStore struct {
	*store.PostgresStore
}

func NewPostgresStore(s *store.PostgresStore) Store {
	return postgresStore{PostgresStore: s}
}

func (s postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo IdentityStore) error) error {
	return s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		return fn(ctx, q)
	})
}
