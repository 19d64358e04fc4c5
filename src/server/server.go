package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"
	"trade-orders/src/notification"

	"github.com/gin-gonic/gin"
)

var _ interfaces.IServer = (*HTTPServer)(nil)

// -----------------------------------------------------------------------------
// HTTPServer
// -----------------------------------------------------------------------------

// HTTPServer exposes the order API and the /ws notification channel.
type HTTPServer struct {
	Config *models.MConfig
	Logger *logger.Logger

	engine  *gin.Engine
	http    *http.Server
	service interfaces.IOrderService
	hub     *notification.Hub

	hubCtx     context.Context
	hubCancel  context.CancelFunc
	hubStarted atomic.Bool
	stopOnce   sync.Once
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewHTTPServer(cfg *models.MConfig, svc interfaces.IOrderService, hub *notification.Hub, log *logger.Logger) *HTTPServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.New(),
		service: svc,
		hub:     hub,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestID())
	s.engine.Use(accessLog(log.Named("http")))
	s.engine.Use(cors(cfg.CORSOrigins))

	s.setupRoutes()

	s.hubCtx, s.hubCancel = context.WithCancel(context.Background())

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *HTTPServer) setupRoutes() {
	s.engine.GET("/", s.getRoot)
	s.engine.GET("/health", s.getHealth)

	orders := s.engine.Group("/orders")
	orders.POST("", s.createOrder)
	orders.GET("", s.listOrders)
	orders.GET("/:order_id", s.getOrder)
	orders.PUT("/:order_id", s.updateOrder)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler returns the routed engine, for embedding or tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the notification hub and serves until Stop is called.
func (s *HTTPServer) Start() error {
	if s.hubStarted.CompareAndSwap(false, true) {
		go s.hub.Run(s.hubCtx)
	}

	s.Logger.Info("Starting server on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.hubCancel()
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop stops accepting requests, waits for in-flight ones, then closes every
// subscriber by stopping the hub.
func (s *HTTPServer) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		err = s.http.Shutdown(ctx)
		s.hubCancel()
		if s.hubStarted.Load() {
			select {
			case <-s.hub.Stopped():
			case <-ctx.Done():
			}
		}
		s.Logger.Info("Server stopped")
	})
	return err
}
