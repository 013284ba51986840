// Package httpapi provides the FlowDeck HTTP JSON API.
//
// One handler per (resource, verb) pair: authenticate the session, validate
// the payload, run a database transaction, map failures to a structured error
// envelope. Successful mutations are announced on the WebSocket event hub.
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/events"
	"github.com/mkeller/flowdeck/internal/server/session"
)

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default: ":8080")
	Addr string

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8080",
		Logger: log.New(log.Writer(), "[serve] ", log.LstdFlags),
	}
}

// Server serves the FlowDeck API.
type Server struct {
	db       *db.DB
	sessions *session.Manager
	hub      *events.Hub
	logger   *log.Logger

	addr     string
	listener net.Listener
	server   *http.Server
	router   *gin.Engine
	wg       sync.WaitGroup
}

// NewServer wires the router. The database must already have its schema
// initialized.
func NewServer(database *db.DB, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		db:       database,
		sessions: session.NewManager(database.RawDB(), 0),
		hub:      events.NewHub(config.Logger),
		logger:   config.Logger,
		addr:     config.Addr,
		router:   router,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/ws", gin.WrapF(s.hub.HandleWS))

	api := router.Group("/api")
	{
		api.POST("/login", s.handleLogin)
		api.POST("/register", s.handleRegister)
		api.POST("/logout", s.handleLogout)

		authed := api.Group("", s.requireSession)
		{
			authed.GET("/tasks", s.handleListTasks)
			authed.POST("/tasks", s.handleCreateTask)
			authed.PUT("/tasks/:clientId", s.handleUpdateTask)
			authed.DELETE("/tasks/:clientId", s.handleDeleteTask)

			authed.GET("/goals", s.handleListGoals)
			authed.POST("/goals", s.handleCreateGoal)
			authed.PUT("/goals/:clientId", s.handleUpdateGoal)
			authed.DELETE("/goals/:clientId", s.handleDeleteGoal)

			authed.POST("/pomodoro/sessions", s.handleCreateSession)
			authed.GET("/pomodoro/statistics", s.handlePomodoroStatistics)

			authed.GET("/statistics", s.handleGetStatistics)
			authed.POST("/statistics", s.handleSaveStatistics)
		}
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. Non-blocking; use Stop for graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("API server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server and the event hub.
func (s *Server) Stop() error {
	s.logger.Println("Stopping API server")

	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	s.logger.Println("API server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}
