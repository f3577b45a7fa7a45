// Package api exposes the session coordination operations over HTTP.
// Mutations come in through these handlers; results fan out through the
// outbox relay and the WebSocket gateway.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gateway"
	"github.com/kyisaiah47/deep-cut-sub000/internal/ledger"
	"github.com/kyisaiah47/deep-cut-sub000/internal/lifecycle"
	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
	"github.com/kyisaiah47/deep-cut-sub000/internal/phase"
	"github.com/kyisaiah47/deep-cut-sub000/internal/runtime"
)

type Handler struct {
	registry *runtime.Registry
	conns    *gateway.ConnectionManager
	clock    gameclock.Clock
}

func NewHandler(registry *runtime.Registry, conns *gateway.ConnectionManager, clock gameclock.Clock) *Handler {
	return &Handler{registry: registry, conns: conns, clock: clock}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": h.clock.Now().UTC()})
}

// ServerTime lets clients measure offset against the authoritative clock.
func (h *Handler) ServerTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"server_now": h.clock.Now().UTC()})
}

type createSessionRequest struct {
	Settings models.SessionSettings `json:"settings"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_settings"})
			return
		}
	}
	session, err := h.registry.CreateSession(c.Request.Context(), req.Settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"room_code":  session.RoomCode,
		"settings":   session.Settings,
	})
}

type joinRequest struct {
	RoomCode string `json:"room_code" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

func (h *Handler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	rt, err := h.registry.GetByRoomCode(c.Request.Context(), req.RoomCode)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	p, err := rt.Join(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sessionID, roomCode := rt.Session()
	c.JSON(http.StatusOK, gin.H{
		"session_id":     sessionID,
		"room_code":      roomCode,
		"participant_id": p.ID,
		"name":           p.Name,
	})
}

func (h *Handler) State(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	// spectators get a snapshot with no hand
	participantID, _ := uuid.Parse(c.Query("participant_id"))
	state, err := rt.State(c.Request.Context(), participantID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type resyncRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
	ExpectedPhase string    `json:"expected_phase"`
}

// Resync serves a reconnecting client: it re-marks the participant
// connected and returns the authoritative session and participant
// records, flagging whether the client's assumed phase still holds.
func (h *Handler) Resync(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req resyncRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	var expected *models.Phase
	if req.ExpectedPhase != "" {
		phase := models.Phase(req.ExpectedPhase)
		expected = &phase
	}
	sessionID, _ := rt.Session()
	recovered, err := h.registry.Resync(c.Request.Context(), sessionID, req.ParticipantID, expected)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recovered)
}

type actorRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
}

func (h *Handler) Start(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req actorRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.StartGame(c.Request.Context(), req.ParticipantID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type submitRequest struct {
	ParticipantID   uuid.UUID   `json:"participant_id" binding:"required"`
	ResponseCardIDs []uuid.UUID `json:"response_card_ids" binding:"required"`
}

func (h *Handler) Submit(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.Submit(c.Request.Context(), req.ParticipantID, req.ResponseCardIDs); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type voteRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
	SubmissionID  uuid.UUID `json:"submission_id" binding:"required"`
}

func (h *Handler) Vote(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.Vote(c.Request.Context(), req.ParticipantID, req.SubmissionID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Pause(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req actorRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.PauseTimer(c.Request.Context(), req.ParticipantID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Resume(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req actorRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.ResumeTimer(c.Request.Context(), req.ParticipantID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transferHostRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
	NewHostID     uuid.UUID `json:"new_host_id" binding:"required"`
}

func (h *Handler) TransferHost(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req transferHostRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.TransferHost(c.Request.Context(), req.ParticipantID, req.NewHostID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Reset(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req actorRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.Reset(c.Request.Context(), req.ParticipantID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type settingsRequest struct {
	ParticipantID uuid.UUID              `json:"participant_id" binding:"required"`
	Settings      models.SessionSettings `json:"settings" binding:"required"`
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	rt, ok := h.session(c)
	if !ok {
		return
	}
	var req settingsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := rt.UpdateSettings(c.Request.Context(), req.ParticipantID, req.Settings); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WebSocket upgrades a client onto the session's event feed.
func (h *Handler) WebSocket(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session_id"})
		return
	}
	participantID, err := uuid.Parse(c.Query("participant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_participant_id"})
		return
	}
	if _, err := h.registry.Get(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	if err := h.conns.UpgradeConnection(c.Writer, c.Request, sessionID, participantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upgrade_failed"})
	}
}

func (h *Handler) session(c *gin.Context) (*runtime.SessionRuntime, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session_id"})
		return nil, false
	}
	rt, err := h.registry.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return nil, false
	}
	return rt, true
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var transition *phase.InvalidTransitionError
	switch {
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "detail": transition.Reason})
	case errors.Is(err, runtime.ErrNotAllowed), errors.Is(err, runtime.ErrNotHost),
		errors.Is(err, lifecycle.ErrNotAuthorized), errors.Is(err, lifecycle.ErrNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "detail": err.Error()})
	case errors.Is(err, runtime.ErrSessionNotFound), errors.Is(err, lifecycle.ErrNotMember):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, lifecycle.ErrSessionFull),
		errors.Is(err, ledger.ErrAlreadySubmitted), errors.Is(err, ledger.ErrAlreadyVoted),
		errors.Is(err, ledger.ErrWrongPhase):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "detail": err.Error()})
	case errors.Is(err, lifecycle.ErrNameTooLong),
		errors.Is(err, ledger.ErrCardNotOwned), errors.Is(err, ledger.ErrOwnSubmission),
		errors.Is(err, ledger.ErrWrongPrompt), errors.Is(err, ledger.ErrUnknownSubmission):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "detail": err.Error()})
	}
}

// requestLogger mirrors access logs through zerolog, skipping socket noise.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "/health" {
			return
		}
		logHTTP(path, c.Writer.Status(), time.Since(start))
	}
}
