package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/realtime"
	"github.com/yungbote/swarmchat-backend/internal/services"
)

const wsEventChatMessage = "chat:message"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	log         *logger.Logger
	hub         *realtime.Hub
	chatService services.ChatService
}

func NewWSHandler(log *logger.Logger, hub *realtime.Hub, chatService services.ChatService) *WSHandler {
	return &WSHandler{
		log:         log.With("handler", "WSHandler"),
		hub:         hub,
		chatService: chatService,
	}
}

type chatFrame struct {
	Event string `json:"event"`
	Data  struct {
		Content string `json:"content"`
	} `json:"data"`
}

// GET /ws/chat/:participant_id/:subgroup_id
// Bidirectional chat socket: the client sends chat:message frames, the hub
// pushes subgroup events back over the same connection.
func (wh *WSHandler) Chat(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("participant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	subgroupID, err := uuid.Parse(c.Param("subgroup_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.Warn("ws upgrade failed", "participantID", participantID, "error", err)
		return
	}
	defer conn.Close()

	wh.hub.ConnectToSubgroup(participantID, subgroupID, conn)
	defer wh.hub.DisconnectFromSubgroup(participantID, subgroupID)
	wh.log.Info("chat socket connected", "participantID", participantID, "subgroupID", subgroupID)

	for {
		var frame chatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			wh.log.Info("chat socket closed", "participantID", participantID, "error", err)
			return
		}
		if frame.Event != wsEventChatMessage {
			continue
		}
		if err := wh.chatService.HandleChatMessage(c.Request.Context(), participantID, subgroupID, frame.Data.Content); err != nil {
			wh.log.Error("chat message failed", "participantID", participantID, "error", err)
		}
	}
}

// GET /ws/session/:participant_id/:session_id
// Listen-only socket for session-level events (visualizer, admin console).
func (wh *WSHandler) Session(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("participant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.Warn("ws upgrade failed", "participantID", participantID, "error", err)
		return
	}
	defer conn.Close()

	wh.hub.ConnectToSession(participantID, sessionID, conn)
	defer wh.hub.DisconnectFromSession(participantID, sessionID)
	wh.log.Info("session socket connected", "participantID", participantID, "sessionID", sessionID)

	// Drain keepalives until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			wh.log.Info("session socket closed", "participantID", participantID, "error", err)
			return
		}
	}
}
