// Package http provides HTTP middleware and utilities for authentication.
package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/httputil"
)

const bearerPrefix = "bearer "

// extractBearerToken returns the token of a case-insensitive "Bearer <token>" header.
func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) <= len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	return token, token != ""
}

// AuthenticationMiddleware authenticates callers with a Bearer JWT.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Verifies signature, expiry and issuer via the TokenVerifier
// 3. Stores the principal in the request context for GetPrincipal
//
// Missing, malformed, expired or forged tokens all produce 401 Unauthorized.
func AuthenticationMiddleware(verifier authService.TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful", slog.String("user_id", principal.UserID.String()))

		c.Next()
	}
}

// RequestInfoMiddleware records the request id, client IP and user agent in the request
// context so access logs can include them. Must run after the requestid middleware.
func RequestInfoMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := authDomain.RequestInfo{
			RequestID: requestid.Get(c),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(authDomain.WithRequestInfo(c.Request.Context(), info))
		c.Next()
	}
}

// StaticTokenMiddleware protects machine-to-machine endpoints with a shared bearer token.
// An empty expected token rejects every request.
func StaticTokenMiddleware(expected string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if expected == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Debug("static token authentication failed", slog.String("path", c.Request.URL.Path))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}
