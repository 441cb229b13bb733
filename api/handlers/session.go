package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/api"
	"github.com/agentverse/agentverse/orchestrate"
	"github.com/agentverse/agentverse/report"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
)

// Runner starts conversation runs. *orchestrate.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, sessionID, userID, seedPrompt string) (*orchestrate.Result, error)
}

// Reporter renders session artifacts. *report.Service satisfies it.
type Reporter interface {
	Markdown(ctx context.Context, sessionID string) (string, error)
	Transcript(ctx context.Context, sessionID string) (string, error)
	Summarize(ctx context.Context, sessionID, userID string) (*report.Summary, error)
	Invalidate(ctx context.Context, sessionID string)
}

// SessionHandler serves session lifecycle, runs, and reports.
type SessionHandler struct {
	store      store.Store
	runner     Runner
	reporter   Reporter
	runTimeout time.Duration
	logger     *zap.Logger
}

// NewSessionHandler creates a session handler. A zero runTimeout means
// runs are bounded only by the client's context.
func NewSessionHandler(st store.Store, runner Runner, reporter Reporter, runTimeout time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:      st,
		runner:     runner,
		reporter:   reporter,
		runTimeout: runTimeout,
		logger:     logger.With(zap.String("component", "session_handler")),
	}
}

// HandleCreate creates a session with an ordered list of participants.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	user := UserID(r)

	agents := make([]store.Agent, 0, len(req.AgentIDs))
	for _, id := range req.AgentIDs {
		a, err := h.store.GetAgent(r.Context(), id)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		if a.UserID != user {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrAgentNotFound, "agent "+id+" not found", h.logger)
			return
		}
		agents = append(agents, *a)
	}

	sess := &store.Session{
		UserID:   user,
		Topic:    strings.TrimSpace(req.Topic),
		MaxTurns: req.MaxTurns,
		Agents:   agents,
	}
	if err := h.store.CreateSession(r.Context(), sess); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.Int("agents", len(agents)),
		zap.Int("max_turns", sess.MaxTurns),
	)
	WriteJSON(w, http.StatusCreated, Response{
		Success:   true,
		Data:      api.ToSessionView(sess),
		Timestamp: time.Now(),
	})
}

// HandleList lists the caller's sessions.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context(), UserID(r))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	views := make([]api.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, api.ToSessionView(&sessions[i]))
	}
	WriteSuccess(w, views)
}

// HandleGet returns one session with its transcript.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	turns, err := h.store.History(r.Context(), sess.ID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, struct {
		Session api.SessionView `json:"session"`
		Turns   []api.TurnView  `json:"turns"`
	}{
		Session: api.ToSessionView(sess),
		Turns:   api.ToTurnViews(turns, sess.Agents),
	})
}

// HandleRun executes one conversation run to a terminal state.
func (h *SessionHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req api.RunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, sess.ID, UserID(r), req.Prompt)

	// Either outcome can have appended turns; stale reports must go.
	h.reporter.Invalidate(r.Context(), sess.ID)

	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.RunResponse{
		State:   res.State,
		Session: api.ToSessionView(res.Session),
		Turns:   api.ToTurnViews(res.Turns, res.Session.Agents),
	})
}

// HandleStop closes an active session. Closed sessions reject further
// runs; reads and reports keep working.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	if err := h.store.SetStatus(r.Context(), sess.ID, types.SessionCompleted); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	sess.Status = types.SessionCompleted
	WriteSuccess(w, api.ToSessionView(sess))
}

// HandleSummary returns an AI summary, or the degraded fallback.
func (h *SessionHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	sum, err := h.reporter.Summarize(r.Context(), sess.ID, UserID(r))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.SummaryResponse{
		Summary:   sum.Text,
		Generated: sum.Generated,
		Provider:  sum.Provider,
	})
}

// HandleReport returns the markdown analysis report.
func (h *SessionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	doc, err := h.reporter.Markdown(r.Context(), sess.ID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.ReportResponse{Report: doc})
}

// HandleTranscript streams the plain-text transcript as a download.
func (h *SessionHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	text, err := h.reporter.Transcript(r.Context(), sess.ID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "session-"+sess.ID+"-transcript.txt"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// ownedSession loads the {id} session and enforces ownership. Sessions
// belonging to another user are reported as not found.
func (h *SessionHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "session ID is required", h.logger)
		return nil, false
	}

	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}
	if sess.UserID != UserID(r) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrSessionNotFound, "session "+id+" not found", h.logger)
		return nil, false
	}
	return sess, true
}
