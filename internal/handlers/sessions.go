package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/services"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

type SessionHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{
		log:            log.With("handler", "SessionHandler"),
		sessionService: sessionService,
	}
}

type createSessionRequest struct {
	Title        string `json:"title" binding:"required"`
	SubgroupSize int    `json:"subgroup_size"`
}

type sessionDetailResponse struct {
	*types.Session
	UserCount     int64 `json:"user_count"`
	SubgroupCount int64 `json:"subgroup_count"`
}

type subgroupResponse struct {
	*types.Subgroup
	Members []*types.Participant `json:"members"`
}

// POST /api/sessions
func (sh *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.SubgroupSize == 0 {
		req.SubgroupSize = 5
	}
	session, err := sh.sessionService.Create(c.Request.Context(), req.Title, req.SubgroupSize)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, session)
}

// GET /api/sessions/:id
func (sh *SessionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	detail, err := sh.sessionService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, sessionDetailResponse{
		Session:       detail.Session,
		UserCount:     detail.ParticipantCount,
		SubgroupCount: detail.SubgroupCount,
	})
}

// GET /api/sessions/join/:join_code
func (sh *SessionHandler) GetByJoinCode(c *gin.Context) {
	session, err := sh.sessionService.GetByJoinCode(c.Request.Context(), c.Param("join_code"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, session)
}

// POST /api/sessions/:id/start
func (sh *SessionHandler) Start(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	details, err := sh.sessionService.Start(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toSubgroupResponses(details))
}

// POST /api/sessions/:id/stop
func (sh *SessionHandler) Stop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	final, err := sh.sessionService.Stop(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "completed", "final_convergence": final})
}

// GET /api/sessions/:id/subgroups
func (sh *SessionHandler) Subgroups(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	details, err := sh.sessionService.Subgroups(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toSubgroupResponses(details))
}

// GET /api/sessions/:id/ideas
func (sh *SessionHandler) Ideas(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	ideas, err := sh.sessionService.Ideas(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, ideas)
}

func toSubgroupResponses(details []*services.SubgroupDetail) []subgroupResponse {
	out := make([]subgroupResponse, 0, len(details))
	for _, d := range details {
		members := d.Members
		if members == nil {
			members = []*types.Participant{}
		}
		out = append(out, subgroupResponse{Subgroup: d.Subgroup, Members: members})
	}
	return out
}
