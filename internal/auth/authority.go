package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"moments/api/internal/apperr"
	"moments/api/internal/cache"
	"moments/api/internal/store"
)

// IdentityLookup loads an identity by id. Missing identities are reported
// as sql.ErrNoRows.
type IdentityLookup interface {
	IdentityByID(ctx context.Context, id int64) (store.Identity, error)
}

type Options struct {
	Secret []byte
	Pepper []byte
	Params CryptParams
	// Cache accelerates Issue and Crypt; nil disables it.
	Cache  cache.Cache
	Logger *slog.Logger
}

// Authority issues, validates and revokes session tokens. Revocation is
// implicit: changing an identity's credential hash kills its tokens.
type Authority struct {
	identities IdentityLookup
	secret     []byte
	pepper     []byte
	params     CryptParams
	cache      cache.Cache
	logger     *slog.Logger
}

func NewAuthority(identities IdentityLookup, opts Options) *Authority {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Params == (CryptParams{}) {
		opts.Params = DefaultCryptParams
	}
	return &Authority{
		identities: identities,
		secret:     opts.Secret,
		pepper:     opts.Pepper,
		params:     opts.Params,
		cache:      opts.Cache,
		logger:     opts.Logger.With("component", "auth"),
	}
}

func tokenKey(identityID int64) string {
	return "user_token:" + strconv.FormatInt(identityID, 10)
}

func cryptKey(password string) string {
	return "crypt_password:" + password
}

// Issue returns the session token for identity. A cached token is reused only
// when it still encodes the identity's current credential hash.
func (a *Authority) Issue(ctx context.Context, identity store.Identity) (string, error) {
	claims := Claims{ID: identity.ID, CredentialHash: identity.PasswordHash}
	key := tokenKey(identity.ID)

	if cached, ok := a.cache.Get(ctx, key); ok {
		if parsed, err := ParseToken(a.secret, cached); err == nil && parsed == claims {
			return cached, nil
		}
		a.logger.DebugContext(ctx, "stale cached token replaced", "identity_id", identity.ID)
	}

	token, err := IssueToken(a.secret, claims)
	if err != nil {
		return "", apperr.Internal("issue token", err)
	}
	a.cache.Set(ctx, key, token)
	return token, nil
}

// Validate resolves token to a live identity. Any signature, decoding,
// lookup or credential mismatch yields Unauthorized.
func (a *Authority) Validate(ctx context.Context, token string) (store.Identity, error) {
	claims, err := ParseToken(a.secret, token)
	if err != nil {
		return store.Identity{}, apperr.Unauthorized("invalid token")
	}

	identity, err := a.identities.IdentityByID(ctx, claims.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Identity{}, apperr.Unauthorized("invalid token")
	}
	if err != nil {
		return store.Identity{}, apperr.Internal("load identity", err)
	}

	if subtle.ConstantTimeCompare([]byte(identity.PasswordHash), []byte(claims.CredentialHash)) != 1 {
		return store.Identity{}, apperr.Unauthorized("invalid token")
	}
	return identity, nil
}

// Crypt hashes password deterministically. Results are read through the cache
// and are identical whether or not the cache is reachable.
func (a *Authority) Crypt(ctx context.Context, password string) string {
	key := cryptKey(password)
	if hash, ok := a.cache.Get(ctx, key); ok {
		return hash
	}
	hash := derive(a.pepper, a.params, password)
	a.cache.Set(ctx, key, hash)
	return hash
}

// Verify reports whether password hashes to the stored credential hash.
func (a *Authority) Verify(ctx context.Context, password, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(a.Crypt(ctx, password)), []byte(hash)) == 1
}

// InvalidateCache drops the cached token for identityID. Correctness does not
// depend on it; Issue also detects stale entries.
func (a *Authority) InvalidateCache(ctx context.Context, identityID int64) {
	a.cache.Delete(ctx, tokenKey(identityID))
}
