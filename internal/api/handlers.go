package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/types"
)

// AskRequest is the body of POST /v1/ask. An empty SessionID starts a
// new session.
type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse carries the turn record for the session.
type AskResponse struct {
	SessionID string          `json:"session_id"`
	Turn      *rag.TurnResult `json:"turn"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Code      types.ErrorCode `json:"code,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Turn      *rag.TurnResult `json:"turn,omitempty"`
}

// SessionResponse describes one session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	rag.SessionSnapshot
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status     types.HealthState             `json:"status"`
	Version    string                        `json:"version"`
	Sessions   int                           `json:"sessions"`
	Components map[string]types.HealthStatus `json:"components,omitempty"`
}

type linkRequest struct {
	Link string `json:"link" binding:"required"`
}

type roadRequest struct {
	Road string `json:"road" binding:"required"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	id := req.SessionID
	if id == "" {
		id = newSessionID()
	}
	ctrl, _, err := s.session(id, true)
	if err != nil {
		s.logger.Error(c.Request.Context(), "failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session", Code: types.CodeOf(err)})
		return
	}

	log := s.logger.WithSession(id)
	result, err := ctrl.Run(c.Request.Context(), req.Question)
	if err != nil {
		log.Warn(c.Request.Context(), "turn failed", "error", err)
		c.JSON(statusFor(err), ErrorResponse{
			Error:     err.Error(),
			Code:      types.CodeOf(err),
			SessionID: id,
			Turn:      result,
		})
		return
	}

	c.JSON(http.StatusOK, AskResponse{SessionID: id, Turn: result})
}

func statusFor(err error) int {
	switch types.CodeOf(err) {
	case rag.ErrCodeInvalidQuestion:
		return http.StatusBadRequest
	case rag.ErrCodeTurnCanceled:
		return http.StatusRequestTimeout
	case rag.ErrCodeSchemaFailed:
		return http.StatusServiceUnavailable
	default:
		var terr *rag.TurnError
		if errors.As(err, &terr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id := newSessionID()
	ctrl, _, err := s.session(id, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session", Code: types.CodeOf(err)})
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{SessionID: id, SessionSnapshot: ctrl.Session().Snapshot()})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")
	ctrl, ok, _ := s.session(id, false)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", SessionID: id})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, SessionSnapshot: ctrl.Session().Snapshot()})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.sessions.Get(id)
	s.sessions.Delete(id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", SessionID: id})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Link) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "link is required"})
		return
	}
	s.updateSession(c, func(st *rag.SessionState) { st.SetLink(req.Link) })
}

func (s *Server) handleSetRoad(c *gin.Context) {
	var req roadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Road) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "road is required"})
		return
	}
	s.updateSession(c, func(st *rag.SessionState) { st.SetRoad(req.Road) })
}

// updateSession applies fn to the session named in the path, creating
// the session on first use.
func (s *Server) updateSession(c *gin.Context, fn func(*rag.SessionState)) {
	id := c.Param("id")
	ctrl, _, err := s.session(id, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session", Code: types.CodeOf(err)})
		return
	}
	fn(ctrl.Session())
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, SessionSnapshot: ctrl.Session().Snapshot()})
}
