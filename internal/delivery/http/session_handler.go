package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/pool"
	"github.com/C021025/DSASimulator-OJ/internal/usecase"
)

// ActionQueue runs actions off the request goroutine.
type ActionQueue interface {
	Enqueue(a pool.Action) error
}

type createSessionRequest struct {
	QuestionID int64        `json:"questionId" binding:"required,min=1"`
	Query      string       `json:"query"`
	User       *domain.User `json:"user"`
}

type navigateRequest struct {
	Query string `json:"query"`
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type inspectRequest struct {
	SubmissionID int64 `json:"submissionId" binding:"required,min=1"`
}

type consoleInputRequest struct {
	Input string `json:"input"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type languageRequest struct {
	Language      domain.Language `json:"language" binding:"required"`
	ResetTemplate bool            `json:"resetTemplate"`
}

type pageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// SessionHandler exposes workbench sessions over HTTP.
type SessionHandler struct {
	sessions *usecase.SessionRegistry
	actions  ActionQueue
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *usecase.SessionRegistry, actions ActionQueue, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		actions:  actions,
		logger:   logger,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	s, err := h.sessions.Open(c.Request.Context(), req.QuestionID, req.Query, req.User)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": s.ID,
		"state":     s.Workbench.Snapshot(),
	})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Navigate handles POST /api/v1/sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	s.Workbench.History().Navigate(req.Query)
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// Back handles POST /api/v1/sessions/:id/back
func (h *SessionHandler) Back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	moved := s.Workbench.History().Back()
	c.JSON(http.StatusOK, gin.H{"moved": moved, "state": s.Workbench.Snapshot()})
}

// Forward handles POST /api/v1/sessions/:id/forward
func (h *SessionHandler) Forward(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	moved := s.Workbench.History().Forward()
	c.JSON(http.StatusOK, gin.H{"moved": moved, "state": s.Workbench.Snapshot()})
}

// SetTab handles POST /api/v1/sessions/:id/tab
func (h *SessionHandler) SetTab(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req tabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	tab, valid := domain.ParseTab(req.Tab)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tab " + req.Tab})
		return
	}

	applied, err := s.Workbench.SetActiveTab(tab)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "state": s.Workbench.Snapshot()})
}

// Inspect handles POST /api/v1/sessions/:id/inspect
func (h *SessionHandler) Inspect(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req inspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := s.Workbench.InspectSubmission(req.SubmissionID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// CloseInspection handles POST /api/v1/sessions/:id/close-inspection
func (h *SessionHandler) CloseInspection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Workbench.CloseInspection(); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// ToggleConsole handles POST /api/v1/sessions/:id/console/toggle
func (h *SessionHandler) ToggleConsole(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Workbench.ToggleConsole()
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// SelectConsoleTab handles POST /api/v1/sessions/:id/console/tab
func (h *SessionHandler) SelectConsoleTab(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req tabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	tab, valid := domain.ParseConsoleTab(req.Tab)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown console tab " + req.Tab})
		return
	}
	if err := s.Workbench.SelectConsoleTab(tab); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// SetConsoleInput handles PUT /api/v1/sessions/:id/console/input
func (h *SessionHandler) SetConsoleInput(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req consoleInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	s.Workbench.SetConsoleInput(req.Input)
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// EditCode handles PUT /api/v1/sessions/:id/code
func (h *SessionHandler) EditCode(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := s.Workbench.EditCode(req.Code); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// SetLanguage handles PUT /api/v1/sessions/:id/language
func (h *SessionHandler) SetLanguage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := s.Workbench.SetLanguage(req.Language, req.ResetTemplate); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// SetLogPage handles POST /api/v1/sessions/:id/log/page
func (h *SessionHandler) SetLogPage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	s.Workbench.Log().SetPage(req.Page)
	c.JSON(http.StatusOK, s.Workbench.Snapshot())
}

// Run handles POST /api/v1/sessions/:id/run
func (h *SessionHandler) Run(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Workbench.CheckRun(); err != nil {
		respondError(c, h.logger, err)
		return
	}

	wb := s.Workbench
	err := h.actions.Enqueue(pool.Action{
		Name:      "run",
		SessionID: s.ID.String(),
		Do: func(ctx context.Context) error {
			_, err := wb.Run(ctx)
			return err
		},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"action": "run", "status": "queued"})
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Workbench.CheckSubmit(); err != nil {
		respondError(c, h.logger, err)
		return
	}

	wb := s.Workbench
	err := h.actions.Enqueue(pool.Action{
		Name:      "submit",
		SessionID: s.ID.String(),
		Do: func(ctx context.Context) error {
			_, err := wb.Submit(ctx)
			return err
		},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"action": "submit", "status": "queued"})
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID format"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) session(c *gin.Context) (*usecase.Session, bool) {
	id, ok := parseSessionID(c)
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return s, true
}
