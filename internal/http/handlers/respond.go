package handlers

import (
	"net/http"

	"github.com/geocoder89/dmdash/internal/http/middlewares"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/gin-gonic/gin"
)

// APIError is the body of every JSON failure: {"error": APIError}.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

type sessionFailure struct {
	status  int
	message string // empty: use the error's own message
}

var sessionFailures = map[string]sessionFailure{
	session.KindLoginFailed:       {status: http.StatusBadGateway},
	session.KindMalformedResponse: {status: http.StatusBadGateway, message: "User directory returned an unexpected response"},
	session.KindNetworkError:      {status: http.StatusGatewayTimeout},
	session.KindStorageError:      {status: http.StatusInternalServerError, message: "Could not access session storage"},
}

// RespondSessionError maps a session failure to its status and error code.
// Directory failures surface upstream as 502/504, storage failures as 500.
func RespondSessionError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)

	kind := session.Kind(err)
	f, ok := sessionFailures[kind]
	if !ok {
		RespondInternal(ctx, "Unexpected session failure")
		return
	}

	msg := f.message
	if msg == "" {
		msg = err.Error()
	}
	RespondError(ctx, f.status, kind, msg, nil)
}
