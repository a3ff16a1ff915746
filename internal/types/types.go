package types

import (
	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
	"github.com/DoyleJ11/liftmeet-backend/internal/session"
)

// ClockCommand is the websocket message type for manual clock actions.
const ClockCommand = "Clock"

// CommandRequest is the body of every mutating request, over HTTP or the socket.
type CommandRequest struct {
	Actor           string `json:"actor"`
	Override        bool   `json:"override,omitempty"`
	OverridePIN     string `json:"override_pin,omitempty"`
	Reason          string `json:"reason,omitempty"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`

	AthleteID     string `json:"athlete_id,omitempty"`
	Lift          string `json:"lift_type,omitempty"`
	AttemptNumber int    `json:"attempt_number,omitempty"`
	Weight        int    `json:"weight,omitempty"`
	AttemptID     string `json:"attempt_id,omitempty"`
	Result        string `json:"result,omitempty"`
	Target        string `json:"target,omitempty"`

	Athlete          *engine.Athlete `json:"athlete,omitempty"`
	BodyWeight       float64         `json:"body_weight,omitempty"`
	OpeningSnatch    int             `json:"opening_snatch,omitempty"`
	OpeningCleanJerk int             `json:"opening_clean_jerk,omitempty"`
	Disqualified     bool            `json:"is_disqualified,omitempty"`
	Medal            string          `json:"medal,omitempty"`

	Action string `json:"action,omitempty"` // clock: start | pause | reset
}

// Command converts the request into an engine command of type t.
func (r CommandRequest) Command(t engine.CommandType) engine.Command {
	cmd := engine.Command{
		Type:             t,
		Actor:            r.Actor,
		Override:         r.Override,
		Reason:           r.Reason,
		AthleteID:        r.AthleteID,
		Lift:             engine.LiftType(r.Lift),
		AttemptNumber:    r.AttemptNumber,
		Weight:           r.Weight,
		AttemptID:        r.AttemptID,
		Result:           engine.Result(r.Result),
		Target:           engine.Phase(r.Target),
		BodyWeight:       r.BodyWeight,
		OpeningSnatch:    r.OpeningSnatch,
		OpeningCleanJerk: r.OpeningCleanJerk,
		Disqualified:     r.Disqualified,
		Medal:            engine.Medal(r.Medal),
	}
	if r.Athlete != nil {
		cmd.Athlete = *r.Athlete
	}
	return cmd
}

// ClientMessage is a command sent over the websocket.
type ClientMessage struct {
	Type      string `json:"type"` // an engine command type or "Clock"
	RequestID string `json:"request_id,omitempty"`
	CommandRequest
}

// Server message types.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgTimerTick     = "TimerTick"
	MsgAck           = "Ack"
	MsgError         = "Error"
)

type ServerMessage struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Version   int            `json:"version"`
	State     *engine.State  `json:"state,omitempty"`
	View      *engine.View   `json:"view,omitempty"`
	Timer     *session.Timer `json:"timer,omitempty"`
	Events    []engine.Event `json:"events,omitempty"`
	Error     string         `json:"error,omitempty"`
	Code      engine.Code    `json:"code,omitempty"`
}

// SnapshotMessage renders a published snapshot for subscribers.
func SnapshotMessage(snap session.Snapshot) ServerMessage {
	timer := snap.Timer
	if snap.Tick {
		return ServerMessage{Type: MsgTimerTick, Version: snap.Version, Timer: &timer}
	}
	state, view := snap.State, snap.View
	return ServerMessage{Type: MsgStateSnapshot, Version: snap.Version, State: &state, View: &view, Timer: &timer}
}

type CreateSessionRequest struct {
	ID         string   `json:"id,omitempty"`
	Gender     string   `json:"gender"`
	Categories []string `json:"weight_categories"`
}

type CommandResponse struct {
	Version int            `json:"version"`
	Events  []engine.Event `json:"events"`
	State   engine.State   `json:"state"`
	View    engine.View    `json:"view"`
	Timer   session.Timer  `json:"timer"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    engine.Code `json:"code,omitempty"`
	Missing int         `json:"missing,omitempty"`
}
