package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/store"
)

// slowRequestThreshold is the duration above which requests are logged at
// WARN level.
const slowRequestThreshold = 500 * time.Millisecond

// userContextKey is the echo context key holding the authenticated user.
const userContextKey = "user"

// requestLogger logs all requests with timing.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			attrs := []any{
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration_ms", duration.Milliseconds(),
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				s.logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				s.logger.Warn("slow request", attrs...)
			default:
				s.logger.Debug("request completed", attrs...)
			}

			return err
		}
	}
}

// requireAuth validates the bearer token and resolves the account it names.
// The user is stored on the request context for handlers.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		email, err := s.verifyToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := s.store.UserByEmail(c.Request().Context(), email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
			}
			return err
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func (s *Server) verifyToken(token string) (string, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// currentUser returns the authenticated user set by requireAuth.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
