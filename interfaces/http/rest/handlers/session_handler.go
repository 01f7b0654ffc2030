package handlers

import (
	"net/http"
	"time"

	"cartsync/application/shopper"
	"cartsync/pkg/auth"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"

	"go.uber.org/zap"
)

// SessionHandler raises identity transitions for a shopper session
type SessionHandler struct {
	base
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionProvider, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{base{sessions: sessions, errors: errs, logger: logger}}
}

// DrainSummary describes the most recent drain
type DrainSummary struct {
	SagaID     string    `json:"saga_id"`
	Attempted  int       `json:"attempted"`
	Synced     int       `json:"synced"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// SessionStatus is the identity and sync state of a session
type SessionStatus struct {
	SessionID     string        `json:"session_id"`
	Authenticated bool          `json:"authenticated"`
	UserID        string        `json:"user_id,omitempty"`
	SyncState     string        `json:"sync_state"`
	LastDrain     *DrainSummary `json:"last_drain,omitempty"`
}

func statusOf(s *shopper.Session, userID string) SessionStatus {
	status := SessionStatus{
		SessionID:     s.ID,
		Authenticated: s.Signal.Current().IsAuthenticated(),
		UserID:        userID,
		SyncState:     string(s.Coordinator.State()),
	}
	if last, ok := s.Coordinator.LastDrain(); ok {
		summary := &DrainSummary{
			SagaID:     last.SagaID,
			Attempted:  last.Attempted,
			Synced:     last.Synced,
			Succeeded:  last.Succeeded(),
			StartedAt:  last.StartedAt,
			FinishedAt: last.FinishedAt,
		}
		if last.Err != nil {
			summary.Error = last.Err.Error()
		}
		status.LastDrain = summary
	}
	return status
}

// GetSession handles GET /session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.RespondJSON(w, http.StatusOK, statusOf(s, ""))
}

// Login handles POST /session/login. The bearer credential has already been
// checked by the auth middleware; the drain it triggers runs in the
// background, so the response reports the state right after the transition.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	credential, ok := common.GetCredential(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.SignIn(r.Context(), credential); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var userID string
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		userID = user.UserID
	}
	h.logger.Info("Shopper signed in",
		zap.String("sessionID", s.ID),
		zap.String("userID", userID),
	)
	common.RespondJSON(w, http.StatusAccepted, statusOf(s, userID))
}

// Logout handles POST /session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.SignOut(r.Context())
	h.logger.Info("Shopper signed out", zap.String("sessionID", s.ID))
	common.RespondJSON(w, http.StatusOK, statusOf(s, ""))
}
