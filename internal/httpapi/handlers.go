package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/liftmeet-backend/internal/auth"
	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
	"github.com/DoyleJ11/liftmeet-backend/internal/hub"
	"github.com/DoyleJ11/liftmeet-backend/internal/session"
	"github.com/DoyleJ11/liftmeet-backend/internal/types"
)

const maxBody = 1 << 20

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		gender := engine.Gender(strings.ToLower(strings.TrimSpace(req.Gender)))
		if gender != engine.GenderMale && gender != engine.GenderFemale {
			writeError(w, log, &engine.ValidationError{Reason: engine.CodeInvalidInput, Detail: "gender must be male or female"})
			return
		}
		var categories []string
		for _, c := range req.Categories {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
		if len(categories) == 0 {
			writeError(w, log, &engine.ValidationError{Reason: engine.CodeInvalidInput, Detail: "at least one weight category is required"})
			return
		}

		id := strings.TrimSpace(req.ID)
		if id == "" {
			id = uuid.NewString()
		}
		sess, err := h.Create(r.Context(), engine.NewState(id, gender, categories))
		if err != nil {
			writeError(w, log, err)
			return
		}
		snap, err := sess.Current(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("session created", zap.String("session_id", id), zap.String("gender", string(gender)))
		writeJSON(w, http.StatusCreated, types.CommandResponse{Version: snap.Version, Events: []engine.Event{}, State: snap.State, View: snap.View, Timer: snap.Timer})
	}
}

func GetSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := current(w, r, h, log)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.SnapshotMessage(snap))
	}
}

func History(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := current(w, r, h, log)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, struct {
			SessionID string              `json:"session_id"`
			History   []engine.Transition `json:"history"`
		}{snap.State.SessionID, snap.State.History})
	}
}

func Audit(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := current(w, r, h, log)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, struct {
			SessionID string              `json:"session_id"`
			Audit     []engine.AuditEntry `json:"audit"`
		}{snap.State.SessionID, snap.State.Audit})
	}
}

// Command decodes a CommandRequest, fills path parameters through bind, checks
// override authorization and submits the command to the session.
func Command(h *hub.Hub, guard *auth.OverrideGuard, log *zap.Logger, t engine.CommandType, bind func(*http.Request, *types.CommandRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookup(w, r, h, log)
		if !ok {
			return
		}
		var req types.CommandRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		if bind != nil {
			bind(r, &req)
		}
		if req.Override {
			if err := guard.Authorize(req.Actor, req.OverridePIN); err != nil {
				log.Warn("override refused", zap.String("session_id", sess.ID()), zap.String("actor", req.Actor), zap.Error(err))
				writeError(w, log, err)
				return
			}
		}

		res, err := sess.Submit(r.Context(), req.Command(t), req.ExpectedVersion)
		if err == nil {
			err = res.Err
		}
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.CommandResponse{
			Version: res.Snapshot.Version,
			Events:  res.Events,
			State:   res.Snapshot.State,
			View:    res.Snapshot.View,
			Timer:   res.Snapshot.Timer,
		})
	}
}

func Clock(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookup(w, r, h, log)
		if !ok {
			return
		}
		var req types.CommandRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		res, err := sess.Clock(r.Context(), session.ClockAction(req.Action), req.Actor)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.SnapshotMessage(res.Snapshot))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func athleteParam(r *http.Request, req *types.CommandRequest) {
	req.AthleteID = chi.URLParam(r, "athleteID")
}

// Attempt ids contain slashes, so clients send them path-escaped.
func attemptParam(r *http.Request, req *types.CommandRequest) {
	id := chi.URLParam(r, "attemptID")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	req.AttemptID = id
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub, log *zap.Logger) (*session.Session, bool) {
	sess, err := h.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, log, err)
		return nil, false
	}
	return sess, true
}

func current(w http.ResponseWriter, r *http.Request, h *hub.Hub, log *zap.Logger) (session.Snapshot, bool) {
	sess, ok := lookup(w, r, h, log)
	if !ok {
		return session.Snapshot{}, false
	}
	snap, err := sess.Current(r.Context())
	if err != nil {
		writeError(w, log, err)
		return session.Snapshot{}, false
	}
	return snap, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &engine.ValidationError{Reason: engine.CodeInvalidInput, Detail: fmt.Sprintf("bad json: %v", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error onto an HTTP status and reason code.
func statusOf(err error) (int, engine.Code) {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound):
		return http.StatusNotFound, engine.CodeNotFound
	case errors.Is(err, hub.ErrSessionExists), errors.Is(err, engine.ErrDuplicateAthlete):
		return http.StatusConflict, engine.CodeInvalidInput
	case errors.Is(err, auth.ErrOverrideDenied), errors.Is(err, auth.ErrOverrideDisabled):
		return http.StatusForbidden, engine.CodeOverrideDenied
	case errors.Is(err, engine.ErrOverrideActorRequired):
		return http.StatusForbidden, engine.CodeOverrideActor
	case errors.Is(err, engine.ErrAthleteNotFound), errors.Is(err, engine.ErrAttemptNotFound):
		return http.StatusNotFound, engine.CodeNotFound
	case errors.Is(err, engine.ErrValidation):
		return http.StatusUnprocessableEntity, engine.CodeOf(err)
	case errors.Is(err, engine.ErrConcurrencyConflict),
		errors.Is(err, engine.ErrState),
		errors.Is(err, engine.ErrPrerequisite):
		return http.StatusConflict, engine.CodeOf(err)
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest, engine.CodeUnsupportedCommand
	case errors.Is(err, session.ErrClosed), errors.Is(err, hub.ErrHubClosed),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, engine.CodeUnknown
	}
	return http.StatusInternalServerError, engine.CodeUnknown
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, code := statusOf(err)
	body := types.ErrorResponse{Error: err.Error(), Code: code}
	var pe *engine.PrerequisiteError
	if errors.As(err, &pe) {
		body.Missing = pe.Missing
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}
