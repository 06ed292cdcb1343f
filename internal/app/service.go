package app

import (
	"context"
	"time"

	"moments/api/internal/authpw"
	"moments/api/internal/content"
	"moments/api/internal/notify"
	"moments/api/internal/relation"
	"moments/api/internal/store"
)

type Authenticator interface {
	Validate(ctx context.Context, token string) (store.Identity, error)
}

type Identities interface {
	Register(ctx context.Context, req authpw.RegisterRequest) (store.Identity, error)
	SignIn(ctx context.Context, login, password string) (string, error)
	Identity(ctx context.Context, id int64) (store.Identity, error)
	UpdateProfile(ctx context.Context, actor store.Identity, email, nickname *string) (store.Identity, error)
	ChangePassword(ctx context.Context, actor store.Identity, current, next string) error
	UpdateAvatar(ctx context.Context, actor store.Identity, avatar authpw.Avatar) error
	AvatarURL(ctx context.Context, id int64) (string, error)
}

type Content interface {
	CreateMoment(ctx context.Context, author store.Identity, in content.MomentInput) (store.Moment, error)
	GetMoment(ctx context.Context, id int64) (content.MomentView, error)
	PictureURL(ctx context.Context, momentID int64) (string, error)
	UpdateMoment(ctx context.Context, editor store.Identity, id int64, title, description *string) (store.Moment, error)
	DeleteMoment(ctx context.Context, actor store.Identity, id int64) error
	CreateComment(ctx context.Context, author store.Identity, momentID int64, text string) (store.Comment, error)
	GetComment(ctx context.Context, id int64) (store.Comment, error)
	DeleteComment(ctx context.Context, actor store.Identity, id int64) error
	ListComments(ctx context.Context, viewer store.Identity, momentID, beforeID int64) ([]store.Comment, error)
	MyComment(ctx context.Context, viewer store.Identity, momentID int64) (store.Comment, error)
	UserMoments(ctx context.Context, authorID, beforeID int64) ([]store.Moment, error)
	Feed(ctx context.Context, viewer store.Identity, beforeID int64) ([]store.Moment, error)
}

type Relations interface {
	Add(ctx context.Context, kind relation.Kind, subjectID, objectID int64) (bool, error)
	Remove(ctx context.Context, kind relation.Kind, subjectID, objectID int64) (bool, error)
	Exists(ctx context.Context, kind relation.Kind, subjectID, objectID int64) (bool, error)
	Subscriptions(ctx context.Context, subscriberID int64) ([]store.Identity, error)
}

type Notifications interface {
	Unread(ctx context.Context, recipientID int64) ([]store.Notification, error)
	List(ctx context.Context, recipientID, beforeID int64) ([]store.Notification, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	Connect(ctx context.Context, recipientID int64) (notify.Connection, error)
	Authorize(token string) (string, error)
}

type Search interface {
	ByTag(ctx context.Context, tag string, beforeID int64) ([]store.Moment, error)
}

// Check is a readiness probe for one backing service.
type Check func(ctx context.Context) error

// Service bundles the domain services the HTTP layer dispatches to.
type Service struct {
	auth          Authenticator
	identities    Identities
	content       Content
	relations     Relations
	notifications Notifications
	search        Search
	checks        map[string]Check
}

type Deps struct {
	Auth          Authenticator
	Identities    Identities
	Content       Content
	Relations     Relations
	Notifications Notifications
	Search        Search
	// Checks are run by /api/ready, keyed by backing service name.
	Checks map[string]Check
}

func NewService(deps Deps) *Service {
	return &Service{
		auth:          deps.Auth,
		identities:    deps.Identities,
		content:       deps.Content,
		relations:     deps.Relations,
		notifications: deps.Notifications,
		search:        deps.Search,
		checks:        deps.Checks,
	}
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (store.Identity, error) {
	return s.auth.Validate(ctx, token)
}

// Ready runs every check and returns the failures by name.
func (s *Service) Ready(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	failed := map[string]error{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}

// MomentDetail is a moment as shown to one viewer.
type MomentDetail struct {
	content.MomentView
	Liked bool
}

// MomentFor loads a moment and, for signed-in viewers, whether they like it.
func (s *Service) MomentFor(ctx context.Context, viewer *store.Identity, id int64) (MomentDetail, error) {
	view, err := s.content.GetMoment(ctx, id)
	if err != nil {
		return MomentDetail{}, err
	}
	detail := MomentDetail{MomentView: view}
	if viewer != nil {
		if detail.Liked, err = s.relations.Exists(ctx, relation.MomentLike, viewer.ID, id); err != nil {
			return MomentDetail{}, err
		}
	}
	return detail, nil
}

// Profile is a public identity view with the viewer's subscription state.
type Profile struct {
	store.Identity
	Subscribed bool
}

func (s *Service) ProfileFor(ctx context.Context, viewer *store.Identity, id int64) (Profile, error) {
	identity, err := s.identities.Identity(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{Identity: identity}
	if viewer != nil && viewer.ID != id {
		if profile.Subscribed, err = s.relations.Exists(ctx, relation.Subscription, viewer.ID, id); err != nil {
			return Profile{}, err
		}
	}
	return profile, nil
}
