package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cotpanel/cotpanel/internal/journal"
	"github.com/cotpanel/cotpanel/internal/metric"
	ws "github.com/cotpanel/cotpanel/internal/websocket"
)

// JournalHandler streams live journal entries over WebSocket
type JournalHandler struct {
	sessions  *journal.Sessions
	streamHub *ws.StreamHub
	metrics   *metric.Metrics
	log       zerolog.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(sessions *journal.Sessions, hub *ws.StreamHub, metrics *metric.Metrics, log zerolog.Logger) *JournalHandler {
	return &JournalHandler{
		sessions:  sessions,
		streamHub: hub,
		metrics:   metrics,
		log:       log,
	}
}

// HandleLogStream opens a follow session and pumps its entries to the
// client until either side goes away.
func (h *JournalHandler) HandleLogStream(c *gin.Context) {
	session, err := h.sessions.Open(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}

	client, err := h.streamHub.Handle(c.Writer, c.Request, session.ID)
	if err != nil {
		h.sessions.Close(session.ID)
		return
	}

	h.metrics.SetFollowSessions(h.sessions.Count())
	h.log.Debug().Str("session", session.ID).Msg("log stream opened")

	go h.drainClient(client, session.ID)
	h.pumpEntries(client, session)
}

// pumpEntries forwards journal entries to the client. It returns when the
// session's channel closes or a write fails.
func (h *JournalHandler) pumpEntries(client *ws.StreamClient, session *journal.Session) {
	defer func() {
		h.sessions.Close(session.ID)
		h.streamHub.Remove(session.ID)
		h.metrics.SetFollowSessions(h.sessions.Count())
		h.log.Debug().Str("session", session.ID).Msg("log stream closed")
	}()

	for entry := range session.Entries {
		if err := client.WriteJSON(entry); err != nil {
			return
		}
	}
}

// drainClient watches for the client closing its side and tears the
// session down when it does.
func (h *JournalHandler) drainClient(client *ws.StreamClient, sessionID string) {
	for {
		if _, _, err := client.ReadMessage(); err != nil {
			h.sessions.Close(sessionID)
			return
		}
	}
}
