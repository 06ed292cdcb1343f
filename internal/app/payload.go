package app

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"moments/api/internal/store"
)

type uploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// formFile reads one file part from a multipart body. The returned func
// releases it.
func formFile(w http.ResponseWriter, r *http.Request, field string) (uploadedFile, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return uploadedFile{}, nil, fmt.Errorf("invalid multipart body")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return uploadedFile{}, nil, fmt.Errorf("%s file is required", field)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return uploadedFile{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func identityPayload(identity store.Identity) map[string]any {
	return map[string]any{
		"id":        identity.ID,
		"nickname":  identity.Nickname,
		"rating":    identity.Rating,
		"createdAt": timestamp(identity.CreatedAt),
	}
}

// privateIdentityPayload adds fields only the identity itself may see.
func privateIdentityPayload(identity store.Identity) map[string]any {
	payload := identityPayload(identity)
	payload["email"] = identity.Email
	return payload
}

func momentPayload(m store.Moment) map[string]any {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":          m.ID,
		"authorId":    m.AuthorID,
		"author":      m.AuthorNickname,
		"title":       m.Title,
		"description": m.Rendered,
		"views":       m.Views,
		"likes":       m.Likes,
		"tags":        tags,
		"createdAt":   timestamp(m.CreatedAt),
	}
}

func momentsPayload(moments []store.Moment) []map[string]any {
	items := make([]map[string]any, 0, len(moments))
	for _, m := range moments {
		items = append(items, momentPayload(m))
	}
	return items
}

func commentPayload(c store.Comment) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"momentId":  c.MomentID,
		"authorId":  c.AuthorID,
		"author":    c.AuthorNickname,
		"text":      c.Rendered,
		"likes":     c.Likes,
		"createdAt": timestamp(c.CreatedAt),
	}
}

func commentsPayload(comments []store.Comment) []map[string]any {
	items := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentPayload(c))
	}
	return items
}

func notificationPayload(n store.Notification) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"text":      n.Text,
		"isRead":    n.IsRead,
		"actorId":   n.ActorID,
		"momentId":  n.MomentID,
		"commentId": n.CommentID,
		"createdAt": timestamp(n.CreatedAt),
	}
}

func notificationsPayload(items []store.Notification) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, n := range items {
		out = append(out, notificationPayload(n))
	}
	return out
}
