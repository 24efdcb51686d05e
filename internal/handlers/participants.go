package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/services"
)

type ParticipantHandler struct {
	log                *logger.Logger
	participantService services.ParticipantService
}

func NewParticipantHandler(log *logger.Logger, participantService services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{
		log:                log.With("handler", "ParticipantHandler"),
		participantService: participantService,
	}
}

type joinRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	JoinCode    string `json:"join_code" binding:"required"`
}

// POST /api/participants
func (ph *ParticipantHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	participant, err := ph.participantService.Join(c.Request.Context(), req.JoinCode, req.DisplayName)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, participant)
}

// GET /api/participants/:id
func (ph *ParticipantHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	participant, err := ph.participantService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, participant)
}

// GET /api/participants/:id/messages
func (ph *ParticipantHandler) Messages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	messages, err := ph.participantService.Messages(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, messages)
}
