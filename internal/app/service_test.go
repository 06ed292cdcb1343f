package app

import (
	"context"
	"strings"

	"moments/api/internal/apperr"
	"moments/api/internal/authpw"
	"moments/api/internal/content"
	"moments/api/internal/notify"
	"moments/api/internal/relation"
	"moments/api/internal/store"
)

// fakeAuth accepts tokens of the form "token-<nickname>" for known identities.
type fakeAuth struct {
	identities map[string]store.Identity
	err        error
}

func (f *fakeAuth) Validate(_ context.Context, token string) (store.Identity, error) {
	if f.err != nil {
		return store.Identity{}, f.err
	}
	identity, ok := f.identities[strings.TrimPrefix(token, "token-")]
	if !ok || !strings.HasPrefix(token, "token-") {
		return store.Identity{}, apperr.Unauthorized("invalid token")
	}
	return identity, nil
}

// Fakes embed the interface they implement; calling a method a test did not
// stub panics.
type fakeIdentities struct {
	Identities
	registerFn func(context.Context, authpw.RegisterRequest) (store.Identity, error)
	signInFn   func(context.Context, string, string) (string, error)
	identityFn func(context.Context, int64) (store.Identity, error)
	avatarFn   func(context.Context, int64) (string, error)
}

func (f *fakeIdentities) Register(ctx context.Context, req authpw.RegisterRequest) (store.Identity, error) {
	return f.registerFn(ctx, req)
}

func (f *fakeIdentities) SignIn(ctx context.Context, login, password string) (string, error) {
	return f.signInFn(ctx, login, password)
}

func (f *fakeIdentities) Identity(ctx context.Context, id int64) (store.Identity, error) {
	return f.identityFn(ctx, id)
}

func (f *fakeIdentities) AvatarURL(ctx context.Context, id int64) (string, error) {
	return f.avatarFn(ctx, id)
}

type fakeContent struct {
	Content
	getMomentFn     func(context.Context, int64) (content.MomentView, error)
	createMomentFn  func(context.Context, store.Identity, content.MomentInput) (store.Moment, error)
	createCommentFn func(context.Context, store.Identity, int64, string) (store.Comment, error)
	feedFn          func(context.Context, store.Identity, int64) ([]store.Moment, error)
}

func (f *fakeContent) GetMoment(ctx context.Context, id int64) (content.MomentView, error) {
	return f.getMomentFn(ctx, id)
}

func (f *fakeContent) CreateMoment(ctx context.Context, author store.Identity, in content.MomentInput) (store.Moment, error) {
	return f.createMomentFn(ctx, author, in)
}

func (f *fakeContent) CreateComment(ctx context.Context, author store.Identity, momentID int64, text string) (store.Comment, error) {
	return f.createCommentFn(ctx, author, momentID, text)
}

func (f *fakeContent) Feed(ctx context.Context, viewer store.Identity, beforeID int64) ([]store.Moment, error) {
	return f.feedFn(ctx, viewer, beforeID)
}

type relationCall struct {
	op      string
	kind    relation.Kind
	subject int64
	object  int64
}

type fakeRelations struct {
	Relations
	calls  []relationCall
	result bool
	err    error
}

func (f *fakeRelations) record(op string, kind relation.Kind, subject, object int64) (bool, error) {
	f.calls = append(f.calls, relationCall{op, kind, subject, object})
	return f.result, f.err
}

func (f *fakeRelations) Add(_ context.Context, kind relation.Kind, subject, object int64) (bool, error) {
	return f.record("add", kind, subject, object)
}

func (f *fakeRelations) Remove(_ context.Context, kind relation.Kind, subject, object int64) (bool, error) {
	return f.record("remove", kind, subject, object)
}

func (f *fakeRelations) Exists(_ context.Context, kind relation.Kind, subject, object int64) (bool, error) {
	return f.record("exists", kind, subject, object)
}

type fakeNotifications struct {
	Notifications
	unread    []store.Notification
	marked    int64
	markedFor int64
}

func (f *fakeNotifications) Unread(context.Context, int64) ([]store.Notification, error) {
	return f.unread, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	f.markedFor = recipientID
	return f.marked, nil
}

func (f *fakeNotifications) Connect(_ context.Context, recipientID int64) (notify.Connection, error) {
	return notify.Connection{Channel: notify.Channel(recipientID), Token: "sub-token", Unread: f.unread, History: []string{"earlier"}}, nil
}

func (f *fakeNotifications) Authorize(token string) (string, error) {
	if token != "sub-token" {
		return "", apperr.Unauthorized("invalid subscription token")
	}
	return notify.Channel(alice.ID), nil
}

type fakeSearch struct {
	byTagFn func(context.Context, string, int64) ([]store.Moment, error)
}

func (f *fakeSearch) ByTag(ctx context.Context, tag string, beforeID int64) ([]store.Moment, error) {
	return f.byTagFn(ctx, tag, beforeID)
}

var (
	alice = store.Identity{ID: 1, Nickname: "alice", Email: "alice@test.com", Rating: 3}
	bob   = store.Identity{ID: 2, Nickname: "bob", Email: "bob@test.com"}
)

type testDeps struct {
	auth          *fakeAuth
	identities    *fakeIdentities
	content       *fakeContent
	relations     *fakeRelations
	notifications *fakeNotifications
	search        *fakeSearch
	checks        map[string]Check
}

func newTestDeps() *testDeps {
	return &testDeps{
		auth:          &fakeAuth{identities: map[string]store.Identity{"alice": alice, "bob": bob}},
		identities:    &fakeIdentities{},
		content:       &fakeContent{},
		relations:     &fakeRelations{},
		notifications: &fakeNotifications{},
		search:        &fakeSearch{},
		checks:        map[string]Check{},
	}
}

func (d *testDeps) server() *HTTPServer {
	svc := NewService(Deps{
		Auth:          d.auth,
		Identities:    d.identities,
		Content:       d.content,
		Relations:     d.relations,
		Notifications: d.notifications,
		Search:        d.search,
		Checks:        d.checks,
	})
	return NewHTTPServer(svc, "*", nil)
}
