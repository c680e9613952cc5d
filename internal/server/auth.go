package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/store"
)

// tokenLifetime is how long issued bearer tokens stay valid.
const tokenLifetime = 24 * time.Hour

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func (s *Server) handleRegister(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpAuth, time.Since(start)) }()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         models.RoleCurator,
	}
	if err := s.store.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return err
	}

	s.logger.Info("account registered", "email", user.Email)
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleLogin(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpAuth, time.Since(start)) }()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.UserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.issueToken(user.Email)
	if err != nil {
		return err
	}

	s.logger.Info("login", "email", user.Email)
	return c.JSON(http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) issueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
