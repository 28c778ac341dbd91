package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jadhav-onkar/Industrial-AI/internal/auth"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an account. Usernames and emails are unique.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be blank"})
		return
	}
	if minLen := s.config.Auth.MinPasswordLength; len(req.Password) < minLen {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Password must be at least %d characters", minLen),
		})
		return
	}

	existing, err := s.store.FindUserByNameOrEmail(c.Request.Context(), req.Name, req.Email)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		s.logger.Error("Failed to look up user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists."})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// A concurrent registration can still race the lookup above
	user, err := s.store.CreateUser(c.Request.Context(), req.Name, req.Email, hash)
	if errors.Is(err, state.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists."})
		return
	}
	if err != nil {
		s.logger.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.logger.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully! Please log in.",
		"user":    user,
	})
}

// handleLogin verifies credentials and sets the session cookie
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or Password Missing!!"})
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		s.logger.Error("Failed to look up user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		s.logger.Error("Failed to create session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	ttl := s.config.Auth.SessionTTL
	if _, err := s.store.CreateSession(c.Request.Context(), auth.HashSessionToken(token), user.ID, ttl); err != nil {
		s.logger.Error("Failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(ttl.Seconds()), "/", "", s.config.Auth.CookieSecure, true)

	s.logger.Info("User logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// handleLogout ends the current session
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		if err := s.store.DeleteSession(c.Request.Context(), auth.HashSessionToken(token)); err != nil {
			s.logger.Warn("Failed to delete session", "error", err)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", s.config.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// handleMe returns the logged-in user as currently stored
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.GetUserByID(c.Request.Context(), currentUser(c).ID)
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
