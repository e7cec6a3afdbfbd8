package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/gridcast/internal/adapters/export"
	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/domain/describe"
)

// SessionStore manages pull-based replay sessions.
type SessionStore interface {
	Synthesizer() *describe.Synthesizer
	CreateSession(k float64) (service.SessionInfo, error)
	Session(id string) (service.SessionInfo, error)
	AdvanceSession(id string, delta time.Duration) (service.Advance, error)
	AdvanceSessionWall(id string, wall time.Duration) (service.Advance, error)
	CloseSession(id string) error
}

// SessionsHandler handles the /sessions routes.
type SessionsHandler struct {
	store SessionStore
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(store SessionStore) *SessionsHandler {
	return &SessionsHandler{store: store}
}

// createRequest mirrors the body of POST /sessions.
type createRequest struct {
	Acceleration *float64 `json:"acceleration"`
}

// advanceRequest mirrors the body of POST /sessions/{id}/advance. Exactly one
// of the fields must be set.
type advanceRequest struct {
	DeltaSeconds *float64 `json:"delta_seconds"`
	WallSeconds  *float64 `json:"wall_seconds"`
}

func (a advanceRequest) validate() error {
	switch {
	case a.DeltaSeconds == nil && a.WallSeconds == nil:
		return fmt.Errorf("%w: missing delta_seconds or wall_seconds", ErrBadRequest)
	case a.DeltaSeconds != nil && a.WallSeconds != nil:
		return fmt.Errorf("%w: delta_seconds and wall_seconds are exclusive", ErrBadRequest)
	}
	return nil
}

type advanceResponse struct {
	Events      []map[string]any `json:"events"`
	Exhausted   bool             `json:"exhausted"`
	VirtualTime string           `json:"virtual_time"`
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Acceleration == nil {
		writeDomainError(w, fmt.Errorf("%w: missing acceleration", ErrBadRequest))
		return
	}
	info, err := h.store.CreateSession(*req.Acceleration)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Session(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleAdvance handles POST /sessions/{id}/advance requests.
func (h *SessionsHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	var adv service.Advance
	if req.DeltaSeconds != nil {
		delta, err := seconds("delta_seconds", *req.DeltaSeconds)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		adv, err = h.store.AdvanceSession(id, delta)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	} else {
		wall, err := seconds("wall_seconds", *req.WallSeconds)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		adv, err = h.store.AdvanceSessionWall(id, wall)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	synth := h.store.Synthesizer()
	resp := advanceResponse{
		Events:      make([]map[string]any, len(adv.Events)),
		Exhausted:   adv.Exhausted,
		VirtualTime: adv.VirtualTime.Format(export.TimeLayout),
	}
	for i, e := range adv.Events {
		resp.Events[i] = export.Annotate(e, synth)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CloseSession(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
