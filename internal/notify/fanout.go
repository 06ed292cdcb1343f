// Package notify delivers notifications to recipients after the rows that
// record them have been committed. Delivery is best-effort: a publish
// failure is logged and never reaches the author of the content.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moments/api/internal/apperr"
	"moments/api/internal/store"
)

const (
	// PageSize is the number of notifications returned by Unread and List.
	PageSize = 10

	publishTimeout = 10 * time.Second
)

type Store interface {
	UnreadNotifications(ctx context.Context, recipientID int64, limit int) ([]store.Notification, error)
	NotificationsBefore(ctx context.Context, recipientID, beforeID int64, limit int) ([]store.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int64, error)
}

type Fanout struct {
	store         Store
	publisher     Publisher
	channelSecret []byte
	logger        *slog.Logger
	now           func() time.Time
	wg            sync.WaitGroup
}

func NewFanout(st Store, publisher Publisher, channelSecret []byte, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{
		store:         st,
		publisher:     publisher,
		channelSecret: channelSecret,
		logger:        logger.With("component", "notify"),
		now:           time.Now,
	}
}

// Publish sends text to the recipient's channel. Failures are logged only.
func (f *Fanout) Publish(ctx context.Context, recipientID int64, text string) {
	if err := f.publisher.Publish(ctx, recipientID, text); err != nil {
		f.logger.WarnContext(ctx, "notification publish failed",
			"recipient_id", recipientID,
			"channel", Channel(recipientID),
			"error", err,
		)
	}
}

// Schedule publishes the committed notifications on a background goroutine
// detached from ctx cancellation. It never blocks the caller.
func (f *Fanout) Schedule(ctx context.Context, notifications []store.Notification) {
	if len(notifications) == 0 {
		return
	}
	items := append([]store.Notification(nil), notifications...)
	ctx = context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		for _, n := range items {
			f.Publish(ctx, n.RecipientID, n.Text)
		}
	}()
}

// Wait blocks until every scheduled delivery has finished or ctx is done.
func (f *Fanout) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unread returns the recipient's newest unread notifications.
func (f *Fanout) Unread(ctx context.Context, recipientID int64) ([]store.Notification, error) {
	items, err := f.store.UnreadNotifications(ctx, recipientID, PageSize)
	if err != nil {
		return nil, apperr.Internal("list unread notifications", err)
	}
	return items, nil
}

// List pages every notification of the recipient, newest first.
func (f *Fanout) List(ctx context.Context, recipientID, beforeID int64) ([]store.Notification, error) {
	items, err := f.store.NotificationsBefore(ctx, recipientID, beforeID, PageSize)
	if err != nil {
		return nil, apperr.Internal("list notifications", err)
	}
	return items, nil
}

// MarkAllRead flips every unread notification of the recipient, then drops
// the channel history. Only the first step is authoritative.
func (f *Fanout) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	marked, err := f.store.MarkAllNotificationsRead(ctx, recipientID)
	if err != nil {
		return 0, apperr.Internal("mark notifications read", err)
	}
	if err := f.publisher.ClearHistory(ctx, recipientID); err != nil {
		f.logger.WarnContext(ctx, "notification history clear failed",
			"recipient_id", recipientID,
			"error", err,
		)
	}
	return marked, nil
}

// Connection is what a client needs to attach to its push channel.
// History holds the messages the channel retained, newest first.
type Connection struct {
	Channel string
	Token   string
	Unread  []store.Notification
	History []string
}

func (f *Fanout) Connect(ctx context.Context, recipientID int64) (Connection, error) {
	token, err := SubscriptionToken(f.channelSecret, recipientID, f.now())
	if err != nil {
		return Connection{}, apperr.Internal("sign subscription token", err)
	}
	unread, err := f.Unread(ctx, recipientID)
	if err != nil {
		return Connection{}, err
	}
	history, err := f.publisher.History(ctx, recipientID, PageSize)
	if err != nil {
		f.logger.WarnContext(ctx, "notification history read failed",
			"recipient_id", recipientID,
			"error", err,
		)
		history = []string{}
	}
	return Connection{
		Channel: Channel(recipientID),
		Token:   token,
		Unread:  unread,
		History: history,
	}, nil
}

// Authorize resolves a subscription token presented by the push transport
// to the only channel it may join.
func (f *Fanout) Authorize(token string) (string, error) {
	recipientID, err := ParseSubscriptionToken(f.channelSecret, token)
	if err != nil {
		return "", apperr.Unauthorized("invalid subscription token")
	}
	return Channel(recipientID), nil
}
