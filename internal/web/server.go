package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jadhav-onkar/Industrial-AI/internal/config"
	"github.com/jadhav-onkar/Industrial-AI/internal/health"
	"github.com/jadhav-onkar/Industrial-AI/internal/logger"
	"github.com/jadhav-onkar/Industrial-AI/internal/pipeline"
	"github.com/jadhav-onkar/Industrial-AI/internal/service"
	"github.com/jadhav-onkar/Industrial-AI/internal/state"
	"github.com/jadhav-onkar/Industrial-AI/internal/video"
)

// StreamProcessor produces annotated frames for a camera
type StreamProcessor interface {
	Run(ctx context.Context, cam state.Camera, userID int64, out func(*video.Frame) error) error
	Streams(userID int64) []pipeline.StreamStats
}

// AlertCache is told when a user's alerts change outside the recorder
type AlertCache interface {
	Forget(userID int64)
}

// Server represents the web server service
type Server struct {
	*service.ServiceBase
	config     *config.Config
	logger     *logger.Logger
	httpServer *http.Server
	router     *gin.Engine
	upgrader   websocket.Upgrader

	store       *state.Manager
	processor   StreamProcessor
	listDevices func() ([]video.Device, error)

	// Optional
	alertCache AlertCache
	health     *health.Manager
	svcManager *service.Manager

	version   string
	startTime time.Time
	addr      string
}

// NewServer creates a new web server service
func NewServer(cfg *config.Config, log *logger.Logger) *Server {
	// Debug mode can be enabled via GIN_MODE environment variable
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.AllowOrigins))

	return &Server{
		ServiceBase: service.NewServiceBase("web-server", log),
		config:      cfg,
		logger:      log,
		router:      router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.Server.AllowOrigins),
		},
		listDevices: video.ListDevices,
		version:     "dev",
		startTime:   time.Now(),
	}
}

// SetVersion sets the application version
func (s *Server) SetVersion(version string) {
	s.version = version
}

// SetDependencies sets the store and the stream processor
func (s *Server) SetDependencies(store *state.Manager, processor StreamProcessor) {
	s.store = store
	s.processor = processor
}

// SetAlertCache sets the cache invalidated when alerts are deleted
func (s *Server) SetAlertCache(cache AlertCache) {
	s.alertCache = cache
}

// SetHealthDependencies sets the health and service managers used by
// the health and status endpoints
func (s *Server) SetHealthDependencies(h *health.Manager, svcManager *service.Manager) {
	s.health = h
	s.svcManager = svcManager
}

// Handler returns the HTTP handler with all routes installed
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background. Bind
// errors are returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	addr := s.config.Server.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.GetStatus().SetError(err)
		return err
	}

	// WriteTimeout stays 0: MJPEG and websocket responses are long lived.
	// They end with the request context, which is cancelled as soon as
	// Shutdown begins so open streams do not hold it until the deadline.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		ReadTimeout:       s.config.Server.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	s.httpServer.RegisterOnShutdown(cancelRequests)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.LogError("Web server error", err, "address", addr)
			s.GetStatus().SetError(err)
		}
	}()

	s.addr = ln.Addr().String()
	s.GetStatus().SetStatus(service.StatusRunning)
	s.LogInfo("Web server started", "address", s.addr)
	return nil
}

// Addr returns the bound listen address once started
func (s *Server) Addr() string {
	return s.addr
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.LogInfo("Stopping web server")
	err := s.httpServer.Shutdown(ctx)
	s.GetStatus().SetStatus(service.StatusStopped)
	return err
}

// setupRoutes sets up all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/health/live", s.handleLiveness)
		api.GET("/health/ready", s.handleReadiness)

		limited := rateLimit(s.config.Auth.LoginRateLimit, s.config.Auth.LoginRateWindow)
		api.POST("/register", limited, s.handleRegister)
		api.POST("/login", limited, s.handleLogin)

		authed := api.Group("", s.requireAuth())
		{
			authed.POST("/logout", s.handleLogout)
			authed.GET("/me", s.handleMe)
			authed.GET("/dashboard", s.handleDashboard)
			authed.GET("/status", s.handleStatus)

			cameras := authed.Group("/cameras")
			{
				cameras.GET("", s.handleListCameras)
				cameras.GET("/devices", s.handleListDevices)
				cameras.POST("", s.handleSaveCamera)
				cameras.DELETE("/:id", s.handleDeleteCamera)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", s.handleListNotifications)
				notifications.GET("/:id/snapshot", s.handleNotificationSnapshot)
				notifications.DELETE("/:id", s.handleDeleteNotification)
			}

			authed.GET("/video_feed/:cam_id", s.handleVideoFeed)
			authed.GET("/alerts/ws", s.handleAlertSocket)
		}
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
