package app

import (
	"context"
	"errors"
	"net/http"

	"moments/api/internal/apperr"
)

type kindResponse struct {
	status int
	code   string
}

var kindResponses = map[apperr.Kind]kindResponse{
	apperr.KindUnauthorized:     {http.StatusUnauthorized, "UNAUTHORIZED"},
	apperr.KindNotFound:         {http.StatusNotFound, "NOT_FOUND"},
	apperr.KindConflict:         {http.StatusConflict, "CONFLICT"},
	apperr.KindForbidden:        {http.StatusForbidden, "FORBIDDEN"},
	apperr.KindValidationFailed: {http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
}

func mapError(err error) (status int, code, message string) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
	}
	resp, ok := kindResponses[appErr.Kind]
	if !ok {
		return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
	}
	return resp.status, resp.code, appErr.Message
}

// writeServiceError reports err to the client. Internal faults are logged with
// their cause and hidden behind a generic message.
func (s *HTTPServer) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "request_id", requestID(ctx), "error", err)
	}
	writeError(w, status, code, message)
}
