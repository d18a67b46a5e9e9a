package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/journal"
	"github.com/cotpanel/cotpanel/internal/metric"
	"github.com/cotpanel/cotpanel/internal/monitor"
	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/unit"
)

// UnitHandler handles the managed unit's endpoints
type UnitHandler struct {
	manager unit.Manager
	poller  *monitor.Poller
	reader  *journal.Reader
	store   *storage.Storage
	metrics *metric.Metrics
	config  *config.Manager
	log     zerolog.Logger
}

// NewUnitHandler creates a new unit handler
func NewUnitHandler(
	manager unit.Manager,
	poller *monitor.Poller,
	reader *journal.Reader,
	store *storage.Storage,
	metrics *metric.Metrics,
	cfg *config.Manager,
	log zerolog.Logger,
) *UnitHandler {
	return &UnitHandler{
		manager: manager,
		poller:  poller,
		reader:  reader,
		store:   store,
		metrics: metrics,
		config:  cfg,
		log:     log,
	}
}

// Get godoc
// @Summary Get service status
// @Description Returns the managed service's current state and process stats
// @Tags unit
// @Produce json
// @Success 200 {object} monitor.Snapshot
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit [get]
func (h *UnitHandler) Get(c *gin.Context) {
	snapshot := h.poller.Latest()
	if snapshot.Timestamp.IsZero() {
		// The poller has not run yet; ask systemd directly.
		info, err := h.manager.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		snapshot = monitor.Snapshot{Timestamp: time.Now().UTC(), Unit: info}
	}
	c.JSON(http.StatusOK, snapshot)
}

// History godoc
// @Summary Get status history
// @Description Returns the retained status snapshots, oldest first
// @Tags unit
// @Produce json
// @Success 200 {array} monitor.Snapshot
// @Router /api/v1/unit/history [get]
func (h *UnitHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.poller.History())
}

// action runs one control verb, counts it and audits the successful ones.
func (h *UnitHandler) action(c *gin.Context, name, message string, fn func(context.Context) error) {
	err := fn(c.Request.Context())
	h.metrics.RecordUnitAction(name, err)
	if err != nil {
		h.log.Error().Err(err).Str("action", name).Msg("unit action failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.log.Info().Str("action", name).Str("unit", h.manager.Name()).Msg("unit action")
	recordAudit(h.store, h.log, c, "unit."+name, h.manager.Name(), "")
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Start godoc
// @Summary Start the service
// @Description Starts the managed service
// @Tags unit
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/start [post]
func (h *UnitHandler) Start(c *gin.Context) {
	h.action(c, "start", "service started", h.manager.Start)
}

// Stop godoc
// @Summary Stop the service
// @Description Stops the managed service
// @Tags unit
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/stop [post]
func (h *UnitHandler) Stop(c *gin.Context) {
	h.action(c, "stop", "service stopped", h.manager.Stop)
}

// Restart godoc
// @Summary Restart the service
// @Description Restarts the managed service
// @Tags unit
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/restart [post]
func (h *UnitHandler) Restart(c *gin.Context) {
	h.action(c, "restart", "service restarted", h.manager.Restart)
}

// Enable godoc
// @Summary Enable the service
// @Description Enables the managed service to start at boot
// @Tags unit
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/enable [post]
func (h *UnitHandler) Enable(c *gin.Context) {
	h.action(c, "enable", "service enabled", h.manager.Enable)
}

// Disable godoc
// @Summary Disable the service
// @Description Disables the managed service from starting at boot
// @Tags unit
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/disable [post]
func (h *UnitHandler) Disable(c *gin.Context) {
	h.action(c, "disable", "service disabled", h.manager.Disable)
}

// Logs godoc
// @Summary Get service logs
// @Description Returns recent journal entries for the managed service
// @Tags unit
// @Produce json
// @Param lines query int false "Number of entries" default(100)
// @Param since query string false "systemd time expression, e.g. -1h"
// @Success 200 {array} journal.Entry
// @Failure 500 {object} map[string]string
// @Router /api/v1/unit/logs [get]
func (h *UnitHandler) Logs(c *gin.Context) {
	lines := h.config.Get().Journal.DefaultLines
	if l := c.Query("lines"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			lines = n
		}
	}

	entries, err := h.reader.Recent(c.Request.Context(), lines, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}
