package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moments/api/internal/apperr"
	"moments/api/internal/authpw"
	"moments/api/internal/content"
	"moments/api/internal/relation"
	"moments/api/internal/store"
)

// maxUploadBytes bounds multipart bodies for pictures and avatars.
const maxUploadBytes = 16 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *slog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger.With("component", "http")}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		failed := s.service.Ready(r.Context())
		checks := map[string]any{}
		for name := range s.service.checks {
			checks[name] = map[string]any{"status": "ok"}
		}
		for name, err := range failed {
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
		}
		status, statusCode := "ready", http.StatusOK
		if len(failed) > 0 {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     len(failed) == 0,
			"status": status,
			"checks": checks,
		})
		return
	}

	// Routes without a session
	if r.Method == http.MethodPost && r.URL.Path == "/api/users" {
		s.handleRegister(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session" {
		s.handleSignIn(w, r)
		return
	}

	// The push transport checks subscription tokens here before a client joins.
	if r.Method == http.MethodGet && r.URL.Path == "/api/notifications/channel" {
		s.handleAuthorizeChannel(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return
	}

	// Public reads, personalised when a valid token is present
	if r.Method == http.MethodGet {
		switch {
		case len(parts) == 3 && parts[1] == "users" && parts[2] != "me":
			s.handleProfile(w, r, parts[2])
			return
		case len(parts) == 4 && parts[1] == "users" && parts[3] == "avatar":
			s.handleAvatar(w, r, parts[2])
			return
		case len(parts) == 4 && parts[1] == "users" && parts[3] == "moments":
			s.handleUserMoments(w, r, parts[2])
			return
		case len(parts) == 3 && parts[1] == "moments":
			s.handleGetMoment(w, r, parts[2])
			return
		case len(parts) == 4 && parts[1] == "moments" && parts[3] == "picture":
			s.handlePicture(w, r, parts[2])
			return
		case len(parts) == 3 && parts[1] == "comments":
			s.handleGetComment(w, r, parts[2])
			return
		case len(parts) == 4 && parts[1] == "tags" && parts[3] == "moments":
			s.handleTagMoments(w, r, parts[2])
			return
		}
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) >= 3 && parts[1] == "users" && parts[2] == "me":
		s.handleMe(w, r, session, parts)
	case len(parts) == 4 && parts[1] == "users" && parts[3] == "subscription":
		s.handleRelation(w, r, session, relation.Subscription, parts[2])
	case len(parts) == 2 && parts[1] == "subscriptions" && r.Method == http.MethodGet:
		s.handleSubscriptions(w, r, session)
	case len(parts) == 2 && parts[1] == "feed" && r.Method == http.MethodGet:
		s.handleFeed(w, r, session)
	case len(parts) == 2 && parts[1] == "moments" && r.Method == http.MethodPost:
		s.handleCreateMoment(w, r, session)
	case len(parts) >= 3 && parts[1] == "moments":
		s.handleMoments(w, r, session, parts)
	case len(parts) >= 3 && parts[1] == "comments":
		s.handleComments(w, r, session, parts)
	case len(parts) >= 2 && parts[1] == "notifications":
		s.handleNotifications(w, r, session, parts)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	identity, err := s.service.identities.Register(r.Context(), authpw.RegisterRequest{
		Email:    body.Email,
		Nickname: body.Nickname,
		Password: body.Password,
	})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": privateIdentityPayload(identity)})
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	token, err := s.service.identities.SignIn(r.Context(), strings.TrimSpace(body.Login), body.Password)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, session store.Identity, parts []string) {
	ctx := r.Context()

	if len(parts) == 3 && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"user": privateIdentityPayload(session)})
		return
	}

	if len(parts) == 3 && r.Method == http.MethodPut {
		var body struct {
			Email    *string `json:"email"`
			Nickname *string `json:"nickname"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		updated, err := s.service.identities.UpdateProfile(ctx, session, body.Email, body.Nickname)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": privateIdentityPayload(updated)})
		return
	}

	if len(parts) == 4 && parts[3] == "password" && r.Method == http.MethodPut {
		var body struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if err := s.service.identities.ChangePassword(ctx, session, body.CurrentPassword, body.NewPassword); err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "avatar" && r.Method == http.MethodPut {
		file, closeFile, err := formFile(w, r, "file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		defer closeFile()
		avatar := authpw.Avatar{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Size:        file.Size,
			Body:        file.Body,
		}
		if err := s.service.identities.UpdateAvatar(ctx, session, avatar); err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	profile, err := s.service.ProfileFor(r.Context(), s.optionalSession(r), id)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	payload := identityPayload(profile.Identity)
	payload["subscribed"] = profile.Subscribed
	writeJSON(w, http.StatusOK, map[string]any{"user": payload})
}

func (s *HTTPServer) handleAvatar(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	url, err := s.service.identities.AvatarURL(r.Context(), id)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *HTTPServer) handleUserMoments(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	before, ok := parseBefore(w, r)
	if !ok {
		return
	}
	moments, err := s.service.content.UserMoments(r.Context(), id, before)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moments": momentsPayload(moments)})
}

func (s *HTTPServer) handleSubscriptions(w http.ResponseWriter, r *http.Request, session store.Identity) {
	authors, err := s.service.relations.Subscriptions(r.Context(), session.ID)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	items := make([]map[string]any, 0, len(authors))
	for _, author := range authors {
		items = append(items, identityPayload(author))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": items})
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request, session store.Identity) {
	before, ok := parseBefore(w, r)
	if !ok {
		return
	}
	moments, err := s.service.content.Feed(r.Context(), session, before)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moments": momentsPayload(moments)})
}

func (s *HTTPServer) handleTagMoments(w http.ResponseWriter, r *http.Request, tag string) {
	before, ok := parseBefore(w, r)
	if !ok {
		return
	}
	moments, err := s.service.search.ByTag(r.Context(), tag, before)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moments": momentsPayload(moments)})
}

func (s *HTTPServer) handleCreateMoment(w http.ResponseWriter, r *http.Request, session store.Identity) {
	file, closeFile, err := formFile(w, r, "picture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	defer closeFile()

	moment, err := s.service.content.CreateMoment(r.Context(), session, content.MomentInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Picture: content.Attachment{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Size:        file.Size,
			Body:        file.Body,
		},
	})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"moment": momentPayload(moment)})
}

func (s *HTTPServer) handleGetMoment(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	detail, err := s.service.MomentFor(r.Context(), s.optionalSession(r), id)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	payload := momentPayload(detail.Moment)
	payload["comments"] = detail.Comments
	payload["liked"] = detail.Liked
	writeJSON(w, http.StatusOK, map[string]any{"moment": payload})
}

func (s *HTTPServer) handlePicture(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	url, err := s.service.content.PictureURL(r.Context(), id)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *HTTPServer) handleMoments(w http.ResponseWriter, r *http.Request, session store.Identity, parts []string) {
	ctx := r.Context()
	id, ok := parseID(w, parts[2])
	if !ok {
		return
	}

	if len(parts) == 3 && r.Method == http.MethodPut {
		var body struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		moment, err := s.service.content.UpdateMoment(ctx, session, id, body.Title, body.Description)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"moment": momentPayload(moment)})
		return
	}

	if len(parts) == 3 && r.Method == http.MethodDelete {
		if err := s.service.content.DeleteMoment(ctx, session, id); err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "like" {
		s.handleRelation(w, r, session, relation.MomentLike, parts[2])
		return
	}

	if len(parts) == 4 && parts[3] == "comments" && r.Method == http.MethodGet {
		before, ok := parseBefore(w, r)
		if !ok {
			return
		}
		comments, err := s.service.content.ListComments(ctx, session, id, before)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": commentsPayload(comments)})
		return
	}

	if len(parts) == 4 && parts[3] == "comments" && r.Method == http.MethodPost {
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		comment, err := s.service.content.CreateComment(ctx, session, id, body.Text)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"comment": commentPayload(comment)})
		return
	}

	if len(parts) == 5 && parts[3] == "comments" && parts[4] == "mine" && r.Method == http.MethodGet {
		comment, err := s.service.content.MyComment(ctx, session, id)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comment": commentPayload(comment)})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleGetComment(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	comment, err := s.service.content.GetComment(r.Context(), id)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": commentPayload(comment)})
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, session store.Identity, parts []string) {
	id, ok := parseID(w, parts[2])
	if !ok {
		return
	}

	if len(parts) == 3 && r.Method == http.MethodDelete {
		if err := s.service.content.DeleteComment(r.Context(), session, id); err != nil {
			s.writeServiceError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 4 && parts[3] == "like" {
		s.handleRelation(w, r, session, relation.CommentLike, parts[2])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

// handleRelation toggles one edge: POST adds, DELETE removes, GET reports.
func (s *HTTPServer) handleRelation(w http.ResponseWriter, r *http.Request, session store.Identity, kind relation.Kind, rawID string) {
	ctx := r.Context()
	objectID, ok := parseID(w, rawID)
	if !ok {
		return
	}

	var (
		changed bool
		exists  bool
		err     error
	)
	switch r.Method {
	case http.MethodPost:
		changed, err = s.service.relations.Add(ctx, kind, session.ID, objectID)
		exists = err == nil
	case http.MethodDelete:
		changed, err = s.service.relations.Remove(ctx, kind, session.ID, objectID)
	case http.MethodGet:
		exists, err = s.service.relations.Exists(ctx, kind, session.ID, objectID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exists": exists, "changed": changed})
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, session store.Identity, parts []string) {
	ctx := r.Context()

	if len(parts) == 2 && r.Method == http.MethodGet {
		before, ok := parseBefore(w, r)
		if !ok {
			return
		}
		items, err := s.service.notifications.List(ctx, session.ID, before)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": notificationsPayload(items)})
		return
	}

	if len(parts) == 3 && parts[2] == "unread" && r.Method == http.MethodGet {
		items, err := s.service.notifications.Unread(ctx, session.ID)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": notificationsPayload(items)})
		return
	}

	if len(parts) == 3 && parts[2] == "read_all" && r.Method == http.MethodPost {
		marked, err := s.service.notifications.MarkAllRead(ctx, session.ID)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"marked": marked})
		return
	}

	if len(parts) == 3 && parts[2] == "connect" && r.Method == http.MethodGet {
		conn, err := s.service.notifications.Connect(ctx, session.ID)
		if err != nil {
			s.writeServiceError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"channel":       conn.Channel,
			"token":         conn.Token,
			"notifications": notificationsPayload(conn.Unread),
			"history":       conn.History,
		})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleAuthorizeChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := s.service.notifications.Authorize(r.URL.Query().Get("token"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (store.Identity, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return store.Identity{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return store.Identity{}, false
		}
		s.writeServiceError(r.Context(), w, err)
		return store.Identity{}, false
	}
	return session, true
}

// optionalSession resolves the bearer token if one is sent. Invalid tokens
// are treated as anonymous.
func (s *HTTPServer) optionalSession(r *http.Request) *store.Identity {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		return nil
	}
	return &session
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(writer, r)

		s.logger.InfoContext(ctx, "request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":  code,
		"error": message,
	})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return 0, false
	}
	return id, true
}

// parseBefore reads the ?before= paging cursor; absent means newest.
func parseBefore(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return 0, true
	}
	before, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || before < 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "before must be a non-negative id")
		return 0, false
	}
	return before, true
}
