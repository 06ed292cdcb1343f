package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"moments/api/internal/apperr"
	"moments/api/internal/auth"
	"moments/api/internal/store"
)

type memState struct {
	seq        int64
	identities map[int64]store.Identity
	uploads    map[int64]store.Upload
}

// mockIdentityStore enforces the unique email and nickname constraints.
type mockIdentityStore struct {
	state       *memState
	setAvatarEr error
}

type mockStore struct {
	*mockIdentityStore
	mu sync.Mutex
}

func newMockStore() *mockStore {
	return &mockStore{mockIdentityStore: &mockIdentityStore{state: &memState{
		identities: map[int64]store.Identity{},
		uploads:    map[int64]store.Upload{},
	}}}
}

func (m *mockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo IdentityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockIdentityStore{
		state: &memState{
			seq:        m.state.seq,
			identities: maps.Clone(m.state.identities),
			uploads:    maps.Clone(m.state.uploads),
		},
		setAvatarEr: m.setAvatarEr,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func uniqueViolation() error {
	return fmt.Errorf("insert identity: %w", &pgconn.PgError{Code: "23505"})
}

func (m *mockIdentityStore) taken(id int64, email, nickname string) bool {
	for _, identity := range m.state.identities {
		if identity.ID != id && (identity.Email == email || identity.Nickname == nickname) {
			return true
		}
	}
	return false
}

func (m *mockIdentityStore) InsertIdentity(_ context.Context, email, nickname, hash string) (store.Identity, error) {
	if m.taken(0, email, nickname) {
		return store.Identity{}, uniqueViolation()
	}
	m.state.seq++
	identity := store.Identity{ID: m.state.seq, Email: email, Nickname: nickname, PasswordHash: hash, Created: store.Created{CreatedAt: time.Now()}}
	m.state.identities[identity.ID] = identity
	return identity, nil
}

func (m *mockIdentityStore) IdentityByID(_ context.Context, id int64) (store.Identity, error) {
	identity, ok := m.state.identities[id]
	if !ok {
		return store.Identity{}, fmt.Errorf("get identity %d: %w", id, sql.ErrNoRows)
	}
	return identity, nil
}

func (m *mockIdentityStore) find(match func(store.Identity) bool) (store.Identity, error) {
	for _, identity := range m.state.identities {
		if match(identity) {
			return identity, nil
		}
	}
	return store.Identity{}, fmt.Errorf("get identity: %w", sql.ErrNoRows)
}

func (m *mockIdentityStore) IdentityByNickname(_ context.Context, nickname string) (store.Identity, error) {
	return m.find(func(i store.Identity) bool { return i.Nickname == nickname })
}

func (m *mockIdentityStore) IdentityByEmail(_ context.Context, email string) (store.Identity, error) {
	return m.find(func(i store.Identity) bool { return i.Email == email })
}

func (m *mockIdentityStore) UpdateIdentityProfile(_ context.Context, id int64, email, nickname string) error {
	identity, ok := m.state.identities[id]
	if !ok {
		return fmt.Errorf("update identity profile: %w", sql.ErrNoRows)
	}
	if m.taken(id, email, nickname) {
		return uniqueViolation()
	}
	identity.Email, identity.Nickname = email, nickname
	m.state.identities[id] = identity
	return nil
}

func (m *mockIdentityStore) UpdateIdentityPassword(_ context.Context, id int64, hash string) error {
	identity, ok := m.state.identities[id]
	if !ok {
		return fmt.Errorf("update identity password: %w", sql.ErrNoRows)
	}
	identity.PasswordHash = hash
	m.state.identities[id] = identity
	return nil
}

func (m *mockIdentityStore) InsertUpload(_ context.Context, key string) (store.Upload, error) {
	m.state.seq++
	upload := store.Upload{ID: m.state.seq, ObjectKey: key}
	m.state.uploads[upload.ID] = upload
	return upload, nil
}

func (m *mockIdentityStore) SetIdentityAvatar(_ context.Context, id, uploadID int64) error {
	if m.setAvatarEr != nil {
		return m.setAvatarEr
	}
	identity, ok := m.state.identities[id]
	if !ok {
		return fmt.Errorf("set identity avatar: %w", sql.ErrNoRows)
	}
	identity.AvatarKey = m.state.uploads[uploadID].ObjectKey
	m.state.identities[id] = identity
	return nil
}

type fakeBlobs struct {
	objects map[string]bool
	removed []string
}

func (b *fakeBlobs) Put(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := "uploads/" + filename
	b.objects[key] = true
	return key, nil
}

func (b *fakeBlobs) URLFor(_ context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (b *fakeBlobs) Remove(_ context.Context, key string) error {
	b.removed = append(b.removed, key)
	delete(b.objects, key)
	return nil
}

const password = "Qwerty12345!"

type fixture struct {
	store *mockStore
	blobs *fakeBlobs
	svc   *Service
}

func newFixture() fixture {
	st := newMockStore()
	authority := auth.NewAuthority(st, auth.Options{
		Secret: []byte("token-secret"),
		Pepper: []byte("pepper"),
		Params: auth.CryptParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16},
	})
	blobs := &fakeBlobs{objects: map[string]bool{}}
	svc := NewService(st, authority, Options{Blobs: blobs, DefaultAvatar: "avatar.jpg"})
	return fixture{store: st, blobs: blobs, svc: svc}
}

func (f fixture) register(t *testing.T, email, nickname string) store.Identity {
	t.Helper()
	identity, err := f.svc.Register(context.Background(), RegisterRequest{Email: email, Nickname: nickname, Password: password})
	require.NoError(t, err)
	return identity
}

func TestRegisterAndSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	identity := f.register(t, "test@test.com", "Test_User")
	require.Equal(t, "test_user", identity.Nickname)
	require.NotEqual(t, password, identity.PasswordHash)
	require.True(t, strings.HasPrefix(identity.PasswordHash, "$argon2id$"))

	for _, login := range []string{"test_user", "test@test.com"} {
		token, err := f.svc.SignIn(ctx, login, password)
		require.NoError(t, err, login)
		require.NotEmpty(t, token)
	}

	_, err := f.svc.SignIn(ctx, "test_user", "wrong-Password1")
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = f.svc.SignIn(ctx, "nobody", password)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"invalid email", RegisterRequest{Email: "ne_email", Nickname: "testing", Password: password}},
		{"weak password", RegisterRequest{Email: "email@gmail.com", Nickname: "testing", Password: "qwerty123"}},
		{"short password", RegisterRequest{Email: "email@gmail.com", Nickname: "testing", Password: "Qw1"}},
		{"empty nickname", RegisterRequest{Email: "email@gmail.com", Nickname: "!!!", Password: password}},
		{"long nickname", RegisterRequest{Email: "email@gmail.com", Nickname: strings.Repeat("a", MaxHandleLength+1), Password: password}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.req)
			require.True(t, apperr.Is(err, apperr.KindValidationFailed), "got %v", err)
		})
	}
	require.Empty(t, f.store.state.identities)
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	f := newFixture()
	f.register(t, "test@test.com", "test_user")

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "test@test.com", Nickname: "other", Password: password})
	require.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.Register(context.Background(), RegisterRequest{Email: "other@test.com", Nickname: "TEST_USER", Password: password})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.register(t, "alice@test.com", "alice")
	f.register(t, "bob@test.com", "bob")

	email := "alice_temp@test.com"
	updated, err := f.svc.UpdateProfile(ctx, alice, &email, nil)
	require.NoError(t, err)
	require.Equal(t, email, updated.Email)
	require.Equal(t, "alice", updated.Nickname)
	require.Equal(t, email, f.store.state.identities[alice.ID].Email)

	taken := "bob"
	_, err = f.svc.UpdateProfile(ctx, alice, nil, &taken)
	require.True(t, apperr.Is(err, apperr.KindConflict))

	bad := "not-an-email"
	_, err = f.svc.UpdateProfile(ctx, alice, &bad, nil)
	require.True(t, apperr.Is(err, apperr.KindValidationFailed))
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.register(t, "test@test.com", "test_user")

	token, err := f.svc.SignIn(ctx, "test_user", password)
	require.NoError(t, err)
	actor, err := f.svc.credentials.(*auth.Authority).Validate(ctx, token)
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, actor, "Wrong12345", password+"!")
	require.True(t, apperr.Is(err, apperr.KindValidationFailed))

	require.NoError(t, f.svc.ChangePassword(ctx, actor, password, password+"!"))

	_, err = f.svc.credentials.(*auth.Authority).Validate(ctx, token)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = f.svc.SignIn(ctx, "test_user", password)
	require.True(t, apperr.Is(err, apperr.KindUnauthorized))

	fresh, err := f.svc.SignIn(ctx, "test_user", password+"!")
	require.NoError(t, err)
	require.NotEqual(t, token, fresh)
}

func TestAvatar(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	identity := f.register(t, "test@test.com", "test_user")

	url, err := f.svc.AvatarURL(ctx, identity.ID)
	require.NoError(t, err)
	require.Equal(t, "https://blobs.test/avatar.jpg", url)

	err = f.svc.UpdateAvatar(ctx, identity, Avatar{Filename: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)

	url, err = f.svc.AvatarURL(ctx, identity.ID)
	require.NoError(t, err)
	require.Equal(t, "https://blobs.test/uploads/me.png", url)

	_, err = f.svc.AvatarURL(ctx, 404)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateAvatarDiscardsObjectOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	identity := f.register(t, "test@test.com", "test_user")
	f.store.setAvatarEr = errors.New("connection reset")

	err := f.svc.UpdateAvatar(ctx, identity, Avatar{Filename: "me.png", Size: 3, Body: strings.NewReader("png")})
	require.True(t, apperr.Is(err, apperr.KindInternal))
	require.Equal(t, []string{"uploads/me.png"}, f.blobs.removed)
	require.Empty(t, f.store.state.uploads)
}
