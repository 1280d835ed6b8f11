package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/auth"
	apperrors "github.com/kbukum/voxkit/errors"
)

// ClaimsKey is the gin.Context key holding the verified *auth.Claims.
const ClaimsKey = "claims"

// TokenParser verifies a bearer token. *auth.Service implements it.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token on every path not under one of
// skipPaths. Verified claims go to the gin and request contexts.
func Auth(p TokenParser, skipPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.New(apperrors.ErrCodeAuthMissing, "authorization header required").
				WithHint("Send Authorization: Bearer <token>."))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, apperrors.New(apperrors.ErrCodeAuthInvalid, "invalid authorization header format"))
			return
		}
		claims, err := p.Parse(token)
		if err != nil {
			abort(c, apperrors.From(err, ""))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireScope rejects callers whose token lacks scope. Requests that
// passed without a token, because auth is off or the path is public, are
// let through.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.FromContext(c.Request.Context())
		if ok && !claims.Allows(scope) {
			abort(c, apperrors.Newf(apperrors.ErrCodeAuthInvalid, "token lacks the %q scope", scope))
			return
		}
		c.Next()
	}
}
