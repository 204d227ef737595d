package http

import (
	"net/http"
	"strings"

	"coffeeshop/internal/domain"

	"github.com/gin-gonic/gin"
)

// AuthorizedHandler receives the verified claims of the caller.
type AuthorizedHandler func(c *gin.Context, claims domain.ClaimSet)

// guard verifies the bearer token and checks permission before calling next. next never
// runs when either step fails.
func (s *Server) guard(permission string, next AuthorizedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authInitErr != nil || s.authenticator == nil {
			s.logger.Error("auth configuration error", "err", s.authInitErr, "path", c.Request.URL.Path)
			writeErrorCode(c, http.StatusInternalServerError, domain.CodeInternal, "auth configuration error")
			return
		}
		token, err := extractBearerToken(c.Request.Header)
		if err != nil {
			s.writeAuthError(c, err)
			return
		}
		claims, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeAuthError(c, err)
			return
		}
		if err := s.authorizer.Require(claims, permission); err != nil {
			s.writeAuthError(c, err)
			return
		}
		next(c, claims)
	}
}

// extractBearerToken expects exactly "Bearer <token>"; the scheme is case-insensitive.
func extractBearerToken(header http.Header) (string, error) {
	values := header.Values("Authorization")
	if len(values) == 0 {
		return "", domain.ErrHeaderMissing()
	}
	parts := strings.Split(values[0], " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", domain.ErrHeaderMalformed("Token not found.")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrHeaderMalformed(`Authorization header must start with "Bearer".`)
	}
	return parts[1], nil
}
