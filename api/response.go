package api

import (
	"errors"
	"net/http"
	"strconv"

	"food-delivery/services"

	"github.com/gin-gonic/gin"
)

const (
	stateSuccess = "SUCCESS"
	stateFailed  = "FAILED"
)

// respond writes a successful body. state defaults to SUCCESS.
func respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	if _, ok := body["state"]; !ok {
		body["state"] = stateSuccess
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, reason, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"state": stateFailed, "error": msg, "reason": reason})
}

func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, services.ReasonInvalidRequest, err.Error())
}

func statusForKind(k services.Kind) int {
	switch k {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUpstream:
		return http.StatusBadGateway
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindThrottled:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error to its HTTP status. Unclassified errors
// are logged and hidden behind a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) || se.Kind == services.KindInternal {
		s.logger.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	if se.Kind == services.KindUpstream {
		s.logger.Warnw("upstream failure", "path", c.FullPath(), "reason", se.Reason, "error", err)
	}
	if se.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(se.RetryAfter))
	}
	fail(c, statusForKind(se.Kind), se.Reason, se.Error())
}
