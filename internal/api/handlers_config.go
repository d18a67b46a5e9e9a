package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/editor"
	"github.com/cotpanel/cotpanel/internal/metric"
	"github.com/cotpanel/cotpanel/internal/schema"
	"github.com/cotpanel/cotpanel/internal/storage"
)

// ConfigHandler handles the gateway configuration endpoints
type ConfigHandler struct {
	editor  *editor.Editor
	store   *storage.Storage
	metrics *metric.Metrics
	config  *config.Manager
	log     zerolog.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(
	ed *editor.Editor,
	store *storage.Storage,
	metrics *metric.Metrics,
	cfg *config.Manager,
	log zerolog.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		editor:  ed,
		store:   store,
		metrics: metrics,
		config:  cfg,
		log:     log,
	}
}

// FieldRequest is one key/value validation request
type FieldRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// Schema godoc
// @Summary Get configuration schema
// @Description Returns the ordered field definitions the UI builds its form from
// @Tags config
// @Produce json
// @Success 200 {array} schema.Field
// @Router /api/v1/config/schema [get]
func (h *ConfigHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, schema.Fields())
}

// Get godoc
// @Summary Get configuration
// @Description Returns the decoded configuration merged over defaults, with per-field validation errors
// @Tags config
// @Produce json
// @Success 200 {object} editor.Form
// @Failure 500 {object} map[string]string
// @Router /api/v1/config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	form, err := h.editor.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, form)
}

// ValidateField godoc
// @Summary Validate one field
// @Description Validates a single key/value pair without saving anything
// @Tags config
// @Accept json
// @Produce json
// @Param field body FieldRequest true "Field to validate"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/config/validate [post]
func (h *ConfigHandler) ValidateField(c *gin.Context) {
	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := schema.Lookup(req.Key); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field: " + req.Key})
		return
	}

	c.JSON(http.StatusOK, gin.H{"error": schema.Validate(req.Key, req.Value)})
}

// Put godoc
// @Summary Save configuration
// @Description Validates the complete mapping and writes the environment file. The previous file content is kept as a revision.
// @Tags config
// @Accept json
// @Produce json
// @Param values body map[string]string true "Complete configuration mapping"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/config [put]
func (h *ConfigHandler) Put(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := editor.FromValues(values)
	if !form.Validate() {
		h.metrics.RecordConfigSave("invalid")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "configuration has invalid fields",
			"fields": form.Errors,
		})
		return
	}

	// Read what is about to be replaced before the write happens.
	previous, exists, loadErr := h.editor.Store().Load()

	if err := h.editor.Save(form); err != nil {
		h.metrics.RecordConfigSave("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if loadErr == nil && exists {
		h.keepRevision(c, previous, "")
	}

	h.metrics.RecordConfigSave("ok")
	h.log.Info().Str("path", h.editor.Store().Path()).Msg("configuration saved")
	recordAudit(h.store, h.log, c, "config.save", h.editor.Store().Path(), "")

	c.JSON(http.StatusOK, gin.H{
		"message":          "configuration saved",
		"restart_required": true,
	})
}

// GetFile godoc
// @Summary Get raw configuration file
// @Description Returns the environment file exactly as it is on disk
// @Tags config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/config/file [get]
func (h *ConfigHandler) GetFile(c *gin.Context) {
	text, exists, err := h.editor.Store().Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":   h.editor.Store().Path(),
		"exists": exists,
		"text":   text,
	})
}

// Revisions godoc
// @Summary List configuration revisions
// @Description Returns stored revisions, newest first
// @Tags config
// @Produce json
// @Param limit query int false "Maximum number of revisions" default(20)
// @Success 200 {array} storage.Revision
// @Failure 500 {object} map[string]string
// @Router /api/v1/config/revisions [get]
func (h *ConfigHandler) Revisions(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	revisions, err := h.store.LatestRevisions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if revisions == nil {
		revisions = []storage.Revision{}
	}
	c.JSON(http.StatusOK, revisions)
}

// RestoreRevision godoc
// @Summary Restore a configuration revision
// @Description Writes a stored revision's text back to the environment file. The replaced content is kept as a new revision.
// @Tags config
// @Produce json
// @Param id path string true "Revision ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/config/revisions/{id}/restore [post]
func (h *ConfigHandler) RestoreRevision(c *gin.Context) {
	id := c.Param("id")

	revision, err := h.store.GetRevision(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	previous, exists, loadErr := h.editor.Store().Load()

	if err := h.editor.Store().Write(revision.Text); err != nil {
		h.metrics.RecordConfigSave("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if loadErr == nil && exists {
		h.keepRevision(c, previous, "replaced by restore of "+id)
	}

	h.metrics.RecordConfigSave("restored")
	h.log.Info().Str("revision", id).Msg("configuration revision restored")
	recordAudit(h.store, h.log, c, "config.restore", h.editor.Store().Path(), id)

	c.JSON(http.StatusOK, gin.H{
		"message":          "revision restored",
		"restart_required": true,
	})
}

// keepRevision stores the replaced file text and trims the history to the
// configured cap.
func (h *ConfigHandler) keepRevision(c *gin.Context, text, note string) {
	revision := storage.Revision{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Text:      text,
		User:      c.GetString("user"),
		Note:      note,
	}
	if err := h.store.AddRevision(revision); err != nil {
		h.log.Warn().Err(err).Msg("failed to store configuration revision")
		return
	}

	if max := h.config.Get().Storage.MaxRevisions; max > 0 {
		if err := h.store.RetainRevisions(max); err != nil {
			h.log.Warn().Err(err).Msg("failed to trim configuration revisions")
		}
	}
}
