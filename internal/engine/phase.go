package engine

import "time"

type Phase string

const (
	PhaseScheduled       Phase = "scheduled"
	PhasePostponed       Phase = "postponed"
	PhaseWeighing        Phase = "weighing"
	PhaseReadyToStart    Phase = "ready_to_start"
	PhaseActive          Phase = "active"
	PhaseSnatchActive    Phase = "snatch_active"
	PhaseSnatchComplete  Phase = "snatch_complete"
	PhaseCleanJerkActive Phase = "clean_jerk_active"
	PhaseComplete        Phase = "complete"
)

var successors = map[Phase][]Phase{
	PhaseScheduled:       {PhaseWeighing, PhasePostponed},
	PhasePostponed:       {PhaseScheduled},
	PhaseWeighing:        {PhaseReadyToStart},
	PhaseReadyToStart:    {PhaseActive},
	PhaseActive:          {PhaseSnatchActive},
	PhaseSnatchActive:    {PhaseSnatchComplete},
	PhaseSnatchComplete:  {PhaseCleanJerkActive},
	PhaseCleanJerkActive: {PhaseComplete},
	PhaseComplete:        {},
}

// Successors returns the phases reachable from p in one transition.
func Successors(p Phase) []Phase { return successors[p] }

func (p Phase) Valid() bool {
	_, ok := successors[p]
	return ok
}

func CanTransition(from, to Phase) bool {
	for _, p := range successors[from] {
		if p == to {
			return true
		}
	}
	return false
}

// LockedPhase is the lift phase that may not start while p holds.
func LockedPhase(p Phase) Phase {
	switch p {
	case PhaseSnatchActive:
		return PhaseCleanJerkActive
	case PhaseSnatchComplete, PhaseCleanJerkActive:
		return PhaseSnatchActive
	}
	return ""
}

// CurrentLift is the lift being contested in a single-lift phase.
func CurrentLift(p Phase) LiftType {
	switch p {
	case PhaseSnatchActive:
		return LiftSnatch
	case PhaseCleanJerkActive:
		return LiftCleanJerk
	}
	return ""
}

// Transition is one append-only entry of a session's phase history.
type Transition struct {
	Seq    int       `json:"seq"`
	From   Phase     `json:"from_state"`
	To     Phase     `json:"to_state"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// checkGuard enforces the prerequisites of entering to from the current phase.
func checkGuard(s State, to Phase) error {
	switch {
	case s.Phase == PhaseWeighing && to == PhaseReadyToStart:
		missing := 0
		for _, a := range s.Athletes {
			if !a.WeighedIn {
				missing++
			}
		}
		if missing > 0 {
			return &PrerequisiteError{Reason: CodeIncompleteWeighIn, Missing: missing}
		}
	case s.Phase == PhaseSnatchActive && to == PhaseSnatchComplete:
		if n := len(Candidates(s.Athletes, &s.Ledger, LiftSnatch)); n > 0 {
			return &PrerequisiteError{Reason: CodeAttemptsPending, Missing: n}
		}
	case s.Phase == PhaseCleanJerkActive && to == PhaseComplete:
		if n := len(Candidates(s.Athletes, &s.Ledger, LiftCleanJerk)); n > 0 {
			return &PrerequisiteError{Reason: CodeAttemptsPending, Missing: n}
		}
	}
	return nil
}

// declarable reports whether attempts for lift may be declared or changed in p.
func declarable(p Phase, lift LiftType) bool {
	switch p {
	case PhaseWeighing, PhaseReadyToStart, PhaseActive:
		return true
	case PhaseSnatchActive:
		return lift == LiftSnatch
	case PhaseSnatchComplete, PhaseCleanJerkActive:
		return lift == LiftCleanJerk
	}
	return false
}

// judgeable reports whether attempts for lift may be judged in p.
func judgeable(p Phase, lift LiftType) bool {
	if p == PhaseActive {
		return true
	}
	return CurrentLift(p) == lift
}
