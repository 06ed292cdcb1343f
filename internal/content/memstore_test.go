package content

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"moments/api/internal/store"
)

type memState struct {
	seq           int64
	identities    map[int64]store.Identity
	tags          map[string]int64
	uploads       map[int64]store.Upload
	moments       map[int64]store.Moment
	comments      map[int64]store.Comment
	momentTags    map[[2]int64]bool
	commentTags   map[[2]int64]bool
	notifications []store.Notification
}

func newMemState() *memState {
	return &memState{
		identities:  map[int64]store.Identity{},
		tags:        map[string]int64{},
		uploads:     map[int64]store.Upload{},
		moments:     map[int64]store.Moment{},
		comments:    map[int64]store.Comment{},
		momentTags:  map[[2]int64]bool{},
		commentTags: map[[2]int64]bool{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		seq:           s.seq,
		identities:    maps.Clone(s.identities),
		tags:          maps.Clone(s.tags),
		uploads:       maps.Clone(s.uploads),
		moments:       maps.Clone(s.moments),
		comments:      maps.Clone(s.comments),
		momentTags:    maps.Clone(s.momentTags),
		commentTags:   maps.Clone(s.commentTags),
		notifications: slices.Clone(s.notifications),
	}
}

func (s *memState) next() int64 {
	s.seq++
	return s.seq
}

// faults injects storage errors into specific operations.
type faults struct {
	linkTag       error
	insertComment error
	notification  error
}

type memRepo struct {
	state  *memState
	faults *faults
	// locks records row locks in the order they were taken.
	locks *[]string
}

// memStore commits a transaction's cloned state only when fn succeeds.
type memStore struct {
	*memRepo
	mu sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{memRepo: &memRepo{state: newMemState(), faults: &faults{}, locks: &[]string{}}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memRepo{state: s.state.clone(), faults: s.faults, locks: s.locks}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *memStore) addIdentity(nickname string) store.Identity {
	identity := store.Identity{ID: s.state.next(), Nickname: nickname, Email: nickname + "@example.com"}
	s.state.identities[identity.ID] = identity
	return identity
}

func noRows(what string, id int64) error {
	return fmt.Errorf("get %s %d: %w", what, id, sql.ErrNoRows)
}

func (r *memRepo) FindByHandle(_ context.Context, handle string) (int64, bool, error) {
	for _, identity := range r.state.identities {
		if identity.Nickname == handle {
			return identity.ID, true, nil
		}
	}
	return 0, false, nil
}

func (r *memRepo) UpsertTag(_ context.Context, name string) (int64, error) {
	if id, ok := r.state.tags[name]; ok {
		return id, nil
	}
	id := r.state.next()
	r.state.tags[name] = id
	return id, nil
}

func (r *memRepo) IdentityByID(_ context.Context, id int64) (store.Identity, error) {
	identity, ok := r.state.identities[id]
	if !ok {
		return store.Identity{}, noRows("identity", id)
	}
	return identity, nil
}

func (r *memRepo) AdjustRating(_ context.Context, id, delta int64) error {
	*r.locks = append(*r.locks, fmt.Sprintf("user:%d", id))
	identity, ok := r.state.identities[id]
	if !ok {
		return noRows("identity", id)
	}
	identity.Rating += delta
	r.state.identities[id] = identity
	return nil
}

func (r *memRepo) InsertUpload(_ context.Context, objectKey string) (store.Upload, error) {
	upload := store.Upload{ID: r.state.next(), ObjectKey: objectKey, Created: store.Created{CreatedAt: time.Now()}}
	r.state.uploads[upload.ID] = upload
	return upload, nil
}

func (r *memRepo) InsertMoment(_ context.Context, m store.Moment) (store.Moment, error) {
	m.ID = r.state.next()
	m.CreatedAt = time.Now()
	if upload, ok := r.state.uploads[m.PictureID]; ok {
		m.PictureKey = upload.ObjectKey
	}
	r.state.moments[m.ID] = m
	return m, nil
}

func (r *memRepo) MomentByID(_ context.Context, id int64) (store.Moment, error) {
	m, ok := r.state.moments[id]
	if !ok {
		return store.Moment{}, noRows("moment", id)
	}
	m.AuthorNickname = r.state.identities[m.AuthorID].Nickname
	return m, nil
}

func (r *memRepo) LockMoment(ctx context.Context, id int64) (store.Moment, error) {
	*r.locks = append(*r.locks, fmt.Sprintf("moment:%d", id))
	return r.MomentByID(ctx, id)
}

func (r *memRepo) UpdateMoment(_ context.Context, id int64, title, body, rendered string) error {
	m, ok := r.state.moments[id]
	if !ok {
		return noRows("moment", id)
	}
	m.Title, m.Body, m.Rendered = title, body, rendered
	r.state.moments[id] = m
	return nil
}

func (r *memRepo) IncrementMomentViews(_ context.Context, id int64) error {
	m, ok := r.state.moments[id]
	if !ok {
		return noRows("moment", id)
	}
	m.Views++
	r.state.moments[id] = m
	return nil
}

func (r *memRepo) DeleteMoment(_ context.Context, id int64) error {
	if _, ok := r.state.moments[id]; !ok {
		return noRows("moment", id)
	}
	delete(r.state.moments, id)
	for cid, c := range r.state.comments {
		if c.MomentID == id {
			delete(r.state.comments, cid)
		}
	}
	for key := range r.state.momentTags {
		if key[0] == id {
			delete(r.state.momentTags, key)
		}
	}
	return nil
}

func (r *memRepo) sortedMoments(keep func(store.Moment) bool, beforeID int64, limit int) []store.Moment {
	items := []store.Moment{}
	for _, m := range r.state.moments {
		if keep(m) && (beforeID == 0 || m.ID < beforeID) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r *memRepo) MomentsByAuthor(_ context.Context, authorID, beforeID int64, limit int) ([]store.Moment, error) {
	return r.sortedMoments(func(m store.Moment) bool { return m.AuthorID == authorID }, beforeID, limit), nil
}

func (r *memRepo) FeedMoments(_ context.Context, subscriberID, beforeID int64, limit int) ([]store.Moment, error) {
	return []store.Moment{}, nil
}

func (r *memRepo) LinkMomentTag(_ context.Context, momentID, tagID int64) error {
	if r.faults.linkTag != nil {
		return r.faults.linkTag
	}
	r.state.momentTags[[2]int64{momentID, tagID}] = true
	return nil
}

func (r *memRepo) ClearMomentTags(_ context.Context, momentID int64) error {
	for key := range r.state.momentTags {
		if key[0] == momentID {
			delete(r.state.momentTags, key)
		}
	}
	return nil
}

func (r *memRepo) MomentTags(_ context.Context, momentID int64) ([]string, error) {
	names := []string{}
	for name, id := range r.state.tags {
		if r.state.momentTags[[2]int64{momentID, id}] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *memRepo) LinkCommentTag(_ context.Context, commentID, tagID int64) error {
	if r.faults.linkTag != nil {
		return r.faults.linkTag
	}
	r.state.commentTags[[2]int64{commentID, tagID}] = true
	return nil
}

func (r *memRepo) InsertComment(_ context.Context, c store.Comment) (store.Comment, error) {
	if r.faults.insertComment != nil {
		return store.Comment{}, r.faults.insertComment
	}
	c.ID = r.state.next()
	c.CreatedAt = time.Now()
	r.state.comments[c.ID] = c
	return c, nil
}

func (r *memRepo) CommentByID(_ context.Context, id int64) (store.Comment, error) {
	c, ok := r.state.comments[id]
	if !ok {
		return store.Comment{}, noRows("comment", id)
	}
	return c, nil
}

func (r *memRepo) LockComment(ctx context.Context, id int64) (store.Comment, error) {
	*r.locks = append(*r.locks, fmt.Sprintf("comment:%d", id))
	return r.CommentByID(ctx, id)
}

func (r *memRepo) CommentByAuthor(_ context.Context, momentID, authorID int64) (store.Comment, error) {
	for _, c := range r.state.comments {
		if c.MomentID == momentID && c.AuthorID == authorID {
			return c, nil
		}
	}
	return store.Comment{}, noRows("comment of author", authorID)
}

func (r *memRepo) CommentExists(ctx context.Context, momentID, authorID int64) (bool, error) {
	_, err := r.CommentByAuthor(ctx, momentID, authorID)
	return err == nil, nil
}

func (r *memRepo) CommentsByMoment(_ context.Context, momentID, excludeAuthorID, beforeID int64, limit int) ([]store.Comment, error) {
	items := []store.Comment{}
	for _, c := range r.state.comments {
		if c.MomentID == momentID && c.AuthorID != excludeAuthorID && (beforeID == 0 || c.ID < beforeID) {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *memRepo) CountComments(_ context.Context, momentID int64) (int64, error) {
	var n int64
	for _, c := range r.state.comments {
		if c.MomentID == momentID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) ReleaseCommentRatings(_ context.Context, momentID int64) error {
	for _, c := range r.state.comments {
		if c.MomentID != momentID {
			continue
		}
		identity := r.state.identities[c.AuthorID]
		identity.Rating -= c.Likes
		r.state.identities[c.AuthorID] = identity
	}
	return nil
}

func (r *memRepo) DeleteComment(_ context.Context, id int64) error {
	if _, ok := r.state.comments[id]; !ok {
		return noRows("comment", id)
	}
	delete(r.state.comments, id)
	return nil
}

func (r *memRepo) InsertNotification(_ context.Context, n store.Notification) (store.Notification, error) {
	if r.faults.notification != nil {
		return store.Notification{}, r.faults.notification
	}
	n.ID = r.state.next()
	n.CreatedAt = time.Now()
	r.state.notifications = append(r.state.notifications, n)
	return n, nil
}
