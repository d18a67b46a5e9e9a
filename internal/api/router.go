// Package api exposes the panel's REST and WebSocket surface.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/cotpanel/cotpanel/internal/auth"
	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/editor"
	"github.com/cotpanel/cotpanel/internal/journal"
	"github.com/cotpanel/cotpanel/internal/metric"
	"github.com/cotpanel/cotpanel/internal/monitor"
	"github.com/cotpanel/cotpanel/internal/pkginfo"
	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/unit"
	"github.com/cotpanel/cotpanel/internal/updater"
	"github.com/cotpanel/cotpanel/internal/websocket"
)

// Router holds all route handlers and dependencies
type Router struct {
	engine         *gin.Engine
	config         *config.Manager
	metrics        *metric.Metrics
	unitHandler    *UnitHandler
	configHandler  *ConfigHandler
	journalHandler *JournalHandler
	systemHandler  *SystemHandler
	hub            *websocket.Hub
	streamHub      *websocket.StreamHub
	log            zerolog.Logger
}

// NewRouter creates a new router with all dependencies
func NewRouter(
	cfg *config.Manager,
	store *storage.Storage,
	manager unit.Manager,
	poller *monitor.Poller,
	ed *editor.Editor,
	reader *journal.Reader,
	sessions *journal.Sessions,
	resolver *pkginfo.Resolver,
	upd *updater.Updater,
	metrics *metric.Metrics,
	log zerolog.Logger,
) *Router {
	// Set Gin mode based on config
	if cfg.Get().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:    engine,
		config:    cfg,
		metrics:   metrics,
		hub:       websocket.NewHub(log),
		streamHub: websocket.NewStreamHub(),
		log:       log,
	}

	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(r.observeMiddleware())

	r.unitHandler = NewUnitHandler(manager, poller, reader, store, metrics, cfg, log)
	r.configHandler = NewConfigHandler(ed, store, metrics, cfg, log)
	r.journalHandler = NewJournalHandler(sessions, r.streamHub, metrics, log)
	r.systemHandler = NewSystemHandler(cfg, resolver, upd, store, log)

	r.setupRoutes()
	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	// API v1 group
	v1 := r.engine.Group("/api/v1")
	v1.Use(r.authMiddleware())

	// Unit routes
	unitGroup := v1.Group("/unit")
	{
		unitGroup.GET("", r.unitHandler.Get)
		unitGroup.GET("/history", r.unitHandler.History)
		unitGroup.POST("/start", r.unitHandler.Start)
		unitGroup.POST("/stop", r.unitHandler.Stop)
		unitGroup.POST("/restart", r.unitHandler.Restart)
		unitGroup.POST("/enable", r.unitHandler.Enable)
		unitGroup.POST("/disable", r.unitHandler.Disable)
		unitGroup.GET("/logs", r.unitHandler.Logs)
	}

	// Config routes
	configGroup := v1.Group("/config")
	{
		configGroup.GET("", r.configHandler.Get)
		configGroup.PUT("", r.configHandler.Put)
		configGroup.GET("/schema", r.configHandler.Schema)
		configGroup.POST("/validate", r.configHandler.ValidateField)
		configGroup.GET("/file", r.configHandler.GetFile)
		configGroup.GET("/revisions", r.configHandler.Revisions)
		configGroup.POST("/revisions/:id/restore", r.configHandler.RestoreRevision)
	}

	// Panel routes
	v1.GET("/audit", r.systemHandler.GetAudit)
	v1.GET("/prefs", r.systemHandler.GetPreferences)
	v1.PUT("/prefs", r.systemHandler.SetPreferences)
	v1.GET("/system/info", r.systemHandler.GetSystemInfo)
	v1.GET("/update/check", r.systemHandler.CheckUpdate)
	v1.POST("/update/apply", r.systemHandler.ApplyUpdate)
	v1.GET("/version", r.systemHandler.GetVersion)

	// WebSocket routes
	r.engine.GET("/ws/status", r.handleStatusWebSocket)
	r.engine.GET("/ws/logs", r.journalHandler.HandleLogStream)

	// Swagger
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus scrape endpoint
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	// Health check
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// handleStatusWebSocket handles status WebSocket connections
func (r *Router) handleStatusWebSocket(c *gin.Context) {
	clientID := c.Query("client")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	r.hub.HandleWebSocket(c.Writer, c.Request, clientID)
}

// authMiddleware enforces HTTP basic auth when the panel config enables
// it. Reading the config per request keeps the gate in step with hot
// reloads.
func (r *Router) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := r.config.Get()
		checker := auth.NewChecker(cfg.Auth.Enabled, cfg.Auth.Username, cfg.Auth.Password)
		if !checker.Enabled() {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok || !checker.Check(username, password) {
			c.Header("WWW-Authenticate", `Basic realm="cotpanel"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("user", username)
		c.Next()
	}
}

// corsMiddleware returns CORS middleware
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// observeMiddleware logs each request and feeds the HTTP metrics
func (r *Router) observeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		r.metrics.RecordHTTPRequest(c.Request.Method, path, status, duration)
		r.log.Debug().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

// recordAudit stores one audit entry, attributing it to the basic auth
// user when there is one.
func recordAudit(store *storage.Storage, log zerolog.Logger, c *gin.Context, action, resource, details string) {
	entry := storage.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Resource:  resource,
		Details:   details,
		User:      c.GetString("user"),
		IP:        c.ClientIP(),
	}
	if err := store.AddAuditEntry(entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("failed to record audit entry")
	}
}

// Engine returns the Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Hub returns the WebSocket hub
func (r *Router) Hub() *websocket.Hub {
	return r.hub
}

// StartWebSocketHub starts the WebSocket hub
func (r *Router) StartWebSocketHub() {
	go r.hub.Run()
}

// BroadcastStatus broadcasts a status snapshot to all connected clients
func (r *Router) BroadcastStatus(snapshot interface{}) {
	r.hub.BroadcastJSON("status", snapshot)
	r.metrics.SetWSClients(r.hub.ClientCount())
}
