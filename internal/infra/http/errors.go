package http

import (
	"errors"
	"net/http"

	"coffeeshop/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success     bool   `json:"success"`
	Error       int    `json:"error"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "resource not found",
	http.StatusMethodNotAllowed:    "Method Not Allowed",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
}

func statusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return http.StatusText(status)
}

// writeErrorCode aborts the chain with the error envelope.
func writeErrorCode(c *gin.Context, status int, code domain.ErrorCode, description string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Success:     false,
		Error:       status,
		Message:     statusMessage(status),
		Code:        string(code),
		Description: description,
	})
}

// writeError maps service and store failures. Anything unrecognised is a 500 and its
// text stays in the log.
func (s *Server) writeError(c *gin.Context, err error) {
	if _, ok := domain.AsAuthError(err); ok {
		s.writeAuthError(c, err)
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorCode(c, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, domain.CodeNotFound, "")
	case errors.Is(err, domain.ErrConflict):
		writeErrorCode(c, http.StatusUnprocessableEntity, domain.CodeUnprocessable, "")
	default:
		s.logger.Error("request failed",
			"err", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
		writeErrorCode(c, http.StatusInternalServerError, domain.CodeInternal, "")
	}
}

func (s *Server) writeAuthError(c *gin.Context, err error) {
	authErr, ok := domain.AsAuthError(err)
	if !ok {
		s.writeError(c, err)
		return
	}
	s.metrics.authFailures.WithLabelValues(string(authErr.Code)).Inc()
	s.logger.Warn("request rejected",
		"code", authErr.Code,
		"status", authErr.Status,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
		"err", authErr.Err,
	)
	writeErrorCode(c, authErr.Status, authErr.Code, authErr.Description)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, domain.CodeNotFound, "")
}

func (s *Server) handleNoMethod(c *gin.Context) {
	writeErrorCode(c, http.StatusMethodNotAllowed, domain.CodeMethodNotAllowed, "")
}

// recovery turns panics into a bare 500 envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
		writeErrorCode(c, http.StatusInternalServerError, domain.CodeInternal, "")
	})
}
