package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talk2data/talk2data/internal/model"
	"github.com/talk2data/talk2data/internal/session"
)

// SessionHandler serves the session read side: listing, complete results,
// per-stage retrieval, and teardown.
type SessionHandler struct {
	store *session.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List()
	resp := model.ListSessionsResponse{
		Total:    len(sessions),
		Sessions: make([]model.SessionSummary, len(sessions)),
	}
	for i, s := range sessions {
		resp.Sessions[i] = model.SessionSummary{
			SessionID: s.ID,
			Question:  s.Question,
			Stage:     s.Stage,
			Success:   s.Succeeded(),
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/sessions/{sessionID}: the complete stored result.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, completeResponse(sess))
}

// Delete handles DELETE /api/v1/sessions/{sessionID}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found", map[string]any{"session_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "session_id": id})
}

// Metadata handles GET /api/v1/sessions/{sessionID}/metadata.
func (h *SessionHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, func(sess *model.Session) (any, bool) {
		return sess.Bundle, sess.Bundle != nil
	})
}

// SQL handles GET /api/v1/sessions/{sessionID}/sql.
func (h *SessionHandler) SQL(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, func(sess *model.Session) (any, bool) {
		if sess.Statement == nil {
			return nil, false
		}
		return map[string]string{"sql": sess.Statement.SQL}, true
	})
}

// Results handles GET /api/v1/sessions/{sessionID}/results.
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, func(sess *model.Session) (any, bool) {
		return sess.RowSet, sess.RowSet != nil
	})
}

// Summary handles GET /api/v1/sessions/{sessionID}/summary.
func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, func(sess *model.Session) (any, bool) {
		if sess.Summary == "" {
			return nil, false
		}
		return map[string]string{"summary": sess.Summary}, true
	})
}

// Visualization handles GET /api/v1/sessions/{sessionID}/visualization.
func (h *SessionHandler) Visualization(w http.ResponseWriter, r *http.Request) {
	h.stage(w, r, func(sess *model.Session) (any, bool) {
		return sess.Visualization, sess.Visualization != nil
	})
}

// stage is the shared shape of the per-stage endpoints: 404 for an unknown
// session, 409 when the stage has not produced its result yet.
func (h *SessionHandler) stage(w http.ResponseWriter, r *http.Request, extract func(*model.Session) (any, bool)) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	result, ready := extract(sess)
	if !ready {
		resp := model.StageResponse{
			SessionID: sess.ID,
			Question:  sess.Question,
			Stage:     sess.Stage,
			Success:   false,
			Error:     "stage result not ready",
		}
		if sess.Err != nil {
			resp.Error = sess.Err.Error()
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	writeJSON(w, http.StatusOK, model.StageResponse{
		SessionID: sess.ID,
		Question:  sess.Question,
		Stage:     sess.Stage,
		Result:    result,
		Success:   true,
	})
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found", map[string]any{"session_id": id})
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}
