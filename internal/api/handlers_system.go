package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/monitor"
	"github.com/cotpanel/cotpanel/internal/pkginfo"
	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/updater"
)

// SystemHandler handles panel-level endpoints
type SystemHandler struct {
	config   *config.Manager
	resolver *pkginfo.Resolver
	updater  *updater.Updater
	store    *storage.Storage
	log      zerolog.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(
	cfg *config.Manager,
	resolver *pkginfo.Resolver,
	upd *updater.Updater,
	store *storage.Storage,
	log zerolog.Logger,
) *SystemHandler {
	return &SystemHandler{
		config:   cfg,
		resolver: resolver,
		updater:  upd,
		store:    store,
		log:      log,
	}
}

// SystemInfoResponse bundles host, panel and gateway details
type SystemInfoResponse struct {
	PanelVersion string              `json:"panel_version"`
	Unit         string              `json:"unit"`
	Host         *monitor.SystemInfo `json:"host"`
	Gateway      pkginfo.Info        `json:"gateway"`
}

// GetSystemInfo godoc
// @Summary Get system information
// @Description Returns host details, the panel version and how the gateway package is installed
// @Tags system
// @Produce json
// @Success 200 {object} SystemInfoResponse
// @Failure 500 {object} map[string]string
// @Router /api/v1/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	host, err := monitor.GetSystemInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cfg := h.config.Get()
	c.JSON(http.StatusOK, SystemInfoResponse{
		PanelVersion: h.updater.GetVersion(),
		Unit:         cfg.Service.Unit,
		Host:         host,
		Gateway:      h.resolver.Query(cfg.Service.Unit),
	})
}

// GetAudit godoc
// @Summary Get audit log
// @Description Returns recent audit entries, newest first
// @Tags system
// @Produce json
// @Param limit query int false "Maximum number of entries" default(50)
// @Success 200 {array} storage.AuditEntry
// @Failure 500 {object} map[string]string
// @Router /api/v1/audit [get]
func (h *SystemHandler) GetAudit(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.store.LatestAuditEntries(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []storage.AuditEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetPreferences godoc
// @Summary Get UI preferences
// @Description Returns the stored UI preferences
// @Tags system
// @Produce json
// @Success 200 {object} storage.Preferences
// @Failure 500 {object} map[string]string
// @Router /api/v1/prefs [get]
func (h *SystemHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.store.GetPreferences()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// SetPreferences godoc
// @Summary Save UI preferences
// @Description Stores the UI preferences
// @Tags system
// @Accept json
// @Produce json
// @Param prefs body storage.Preferences true "Preferences"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/prefs [put]
func (h *SystemHandler) SetPreferences(c *gin.Context) {
	var prefs storage.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetPreferences(prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preferences saved"})
}

// CheckUpdate godoc
// @Summary Check for updates
// @Description Checks if a new panel version is available
// @Tags system
// @Produce json
// @Success 200 {object} updater.UpdateInfo
// @Failure 500 {object} map[string]string
// @Router /api/v1/update/check [get]
func (h *SystemHandler) CheckUpdate(c *gin.Context) {
	info, err := h.updater.CheckForUpdate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ApplyUpdate godoc
// @Summary Apply update
// @Description Downloads and applies the latest panel release
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/update/apply [post]
func (h *SystemHandler) ApplyUpdate(c *gin.Context) {
	if err := h.updater.Apply(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recordAudit(h.store, h.log, c, "panel.update", "cotpanel", "")
	c.JSON(http.StatusOK, gin.H{"message": "update applied, restart required"})
}

// GetVersion godoc
// @Summary Get version
// @Description Returns the running panel version
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/version [get]
func (h *SystemHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": h.updater.GetVersion(),
	})
}
