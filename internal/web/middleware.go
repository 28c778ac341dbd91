package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/jadhav-onkar/Industrial-AI/internal/auth"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
)

const (
	sessionCookie   = "session"
	requestIDHeader = "X-Request-ID"
	ctxUser         = "user"
	ctxRequestID    = "request_id"
)

// requestID tags every request with an ID, reusing one sent by a proxy
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ginLogger creates a Gin middleware for logging
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("HTTP request",
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware echoes allowed origins. Cookies are sent cross-origin, so
// the wildcard origin is never returned literally.
func corsMiddleware(allowOrigins []string) gin.HandlerFunc {
	allowed := originChecker(allowOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed(c.Request) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// originChecker allows same-origin requests, requests without an Origin
// header and any origin in the list. "*" allows everything.
func originChecker(allowOrigins []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

// rateLimit limits requests per client IP with httprate
func rateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limited := httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests, try again later"}`))
		}),
	)

	return func(c *gin.Context) {
		passed := false
		limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// requireAuth resolves the session cookie to a user or answers 401
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := s.store.GetSessionUser(c.Request.Context(), auth.HashSessionToken(token))
		if errors.Is(err, state.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if err != nil {
			s.logger.Error("Failed to resolve session", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve session"})
			return
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

// currentUser returns the user set by requireAuth
func currentUser(c *gin.Context) *state.User {
	return c.MustGet(ctxUser).(*state.User)
}
