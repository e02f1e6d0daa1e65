package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/assessio/assessio-backend/internal/anticheat"
	"github.com/assessio/assessio-backend/internal/middleware"
	"github.com/assessio/assessio-backend/internal/model"
	"github.com/assessio/assessio-backend/internal/service"
	ws "github.com/assessio/assessio-backend/internal/websocket"
)

// signalBuffer bounds per-connection backpressure before signals drop.
const signalBuffer = 64

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket event channel carrying environment
// signals from the exam client.
type WSHandler struct {
	manager  *service.SessionManager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *service.SessionManager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// EventChannel godoc
// WS /ws/v1/student/exams/:exam_id/events
// Upgrades to WebSocket and pumps client environment signals into the
// session's audit trail until the connection or the session ends.
func (h *WSHandler) EventChannel(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	key := model.SessionKey{ExamID: examID, StudentID: claims.UserID}

	// Signals only make sense against a live session.
	if _, err := h.manager.ActiveSession(c.Request.Context(), key); err != nil {
		ws.WriteError(conn, "no active session for this exam")
		return
	}

	clientIP := c.ClientIP()
	userAgent := c.Request.UserAgent()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	source := anticheat.NewChannelSource(signalBuffer)
	monitor := anticheat.NewMonitor(key, source, h.manager, wsLog)
	monitor.Start(c.Request.Context())
	defer func() {
		source.Close()
		monitor.Stop()
	}()

	// Session finalization closes the connection so the read loop exits.
	h.manager.RegisterCleanup(key, func() {
		conn.Close()
	})

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.SignalRequest
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionSignal:
			sig := anticheat.Signal{
				Kind:      anticheat.SignalKind(msg.Kind),
				Detail:    msg.Detail,
				ClientIP:  clientIP,
				UserAgent: userAgent,
			}
			if !source.Offer(sig) {
				wsLog.Warn().Str("kind", msg.Kind).Msg("Signal dropped under backpressure")
			}
			ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Kind: msg.Kind})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}
