package engine

import (
	"fmt"
	"slices"
)

func NewState(sessionID string, gender Gender, categories []string) State {
	return State{
		SessionID:  sessionID,
		Gender:     gender,
		Categories: slices.Clone(categories),
		Phase:      PhaseScheduled,
		Athletes:   []Athlete{},
		Ledger:     NewLedger(),
		History:    []Transition{},
		Audit:      []AuditEntry{},
	}
}

// Clone deep-copies s so a failed command can never leak partial writes.
func (s State) Clone() State {
	out := s
	out.Categories = slices.Clone(s.Categories)
	out.Athletes = slices.Clone(s.Athletes)
	out.Ledger = s.Ledger.Clone()
	out.History = slices.Clone(s.History)
	out.Audit = slices.Clone(s.Audit)
	return out
}

// Athlete returns a copy of the athlete with id.
func (s State) Athlete(id string) (Athlete, bool) {
	for _, a := range s.Athletes {
		if a.ID == id {
			return a, true
		}
	}
	return Athlete{}, false
}

func (s *State) athlete(id string) (*Athlete, error) {
	for i := range s.Athletes {
		if s.Athletes[i].ID == id {
			return &s.Athletes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAthleteNotFound, id)
}

func (s *State) hasCategory(label string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if SameCategory(c, label) {
			return true
		}
	}
	return false
}

func (s *State) appendAudit(cmd Command, action, detail string) {
	s.Audit = append(s.Audit, AuditEntry{
		Seq:       len(s.Audit) + 1,
		Action:    action,
		Actor:     cmd.Actor,
		AthleteID: cmd.AthleteID,
		AttemptID: cmd.AttemptID,
		Detail:    detail,
		At:        cmd.At,
	})
}

// View is everything displays need besides the raw state. It is recomputed
// from scratch after every committed mutation.
type View struct {
	Phase           Phase          `json:"phase"`
	LockedPhase     Phase          `json:"locked_phase,omitempty"`
	CurrentLift     LiftType       `json:"current_lift,omitempty"`
	Next            *TurnCandidate `json:"next"`
	Rankings        Rankings       `json:"rankings"`
	Medals          []MedalCount   `json:"medal_table"`
	TimerDefaultSec int            `json:"timer_default_sec"`
}

func Derive(s State) View {
	next := NextTurn(s)
	return View{
		Phase:           s.Phase,
		LockedPhase:     LockedPhase(s.Phase),
		CurrentLift:     CurrentLift(s.Phase),
		Next:            next,
		Rankings:        ComputeRankings(s.Athletes, &s.Ledger),
		Medals:          MedalTable(s.Athletes),
		TimerDefaultSec: DurationFor(next, s.LastActedID),
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
