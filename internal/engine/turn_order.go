package engine

import "slices"

// TurnCandidate is the derived next lift to be called. It is never stored.
type TurnCandidate struct {
	AthleteID     string   `json:"athlete_id"`
	AthleteName   string   `json:"athlete_name"`
	StartNumber   int      `json:"start_number"`
	Lift          LiftType `json:"lift_type"`
	AttemptNumber int      `json:"attempt_number"`
	Weight        int      `json:"weight"`
	AttemptID     string   `json:"attempt_id"`
	Declared      bool     `json:"declared"`
}

// Same reports whether two candidates call the same athlete to the same attempt.
func (c *TurnCandidate) Same(o *TurnCandidate) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.AthleteID == o.AthleteID && c.Lift == o.Lift && c.AttemptNumber == o.AttemptNumber
}

// impliedAttempt finds the earliest open slot for athlete and lift and the weight
// it would be lifted at. Slot 1 without a declaration uses the opening weight.
// A later undeclared slot repeats the previous weight after a no lift and adds
// 1 kg after a good lift, never going below the opening.
func impliedAttempt(a Athlete, lift LiftType, ledger *Ledger) (number, weight int, ok bool) {
	prev := Attempt{}
	for n := 1; n <= MaxAttempts; n++ {
		att, exists := ledger.Lookup(a.ID, lift, n)
		if exists && att.Result.Judged() {
			prev = att
			continue
		}
		if exists {
			return n, att.Weight, att.Weight > 0
		}
		weight = a.Opening(lift)
		if n > 1 && prev.Weight > 0 {
			next := prev.Weight
			if prev.Result == ResultGood {
				next++
			}
			weight = max(weight, next)
		}
		return n, weight, weight > 0
	}
	return 0, 0, false
}

// Candidates returns one candidate per eligible athlete for lift, in call order.
func Candidates(athletes []Athlete, ledger *Ledger, lift LiftType) []TurnCandidate {
	var out []TurnCandidate
	for _, a := range athletes {
		if a.Disqualified {
			continue
		}
		n, w, ok := impliedAttempt(a, lift, ledger)
		if !ok {
			continue
		}
		_, declared := ledger.Lookup(a.ID, lift, n)
		out = append(out, TurnCandidate{
			AthleteID:     a.ID,
			AthleteName:   a.Name,
			StartNumber:   a.StartNumber,
			Lift:          lift,
			AttemptNumber: n,
			Weight:        w,
			AttemptID:     AttemptID(a.ID, lift, n),
			Declared:      declared,
		})
	}
	slices.SortFunc(out, compareCandidates)
	return out
}

func liftOrder(l LiftType) int {
	if l == LiftSnatch {
		return 0
	}
	return 1
}

func compareCandidates(a, b TurnCandidate) int {
	if a.Lift != b.Lift {
		return liftOrder(a.Lift) - liftOrder(b.Lift)
	}
	if a.Weight != b.Weight {
		return a.Weight - b.Weight
	}
	if a.AttemptNumber != b.AttemptNumber {
		return a.AttemptNumber - b.AttemptNumber
	}
	if a.StartNumber != b.StartNumber {
		return a.StartNumber - b.StartNumber
	}
	if a.AthleteID < b.AthleteID {
		return -1
	}
	if a.AthleteID > b.AthleteID {
		return 1
	}
	return 0
}

// EligibleLifts is the set of lifts the phase lets the selector call.
// Plain active offers both, snatch first.
func EligibleLifts(p Phase) []LiftType {
	switch p {
	case PhaseSnatchActive:
		return []LiftType{LiftSnatch}
	case PhaseCleanJerkActive:
		return []LiftType{LiftCleanJerk}
	case PhaseActive:
		return Lifts
	}
	return nil
}

// NextTurn returns the next lift to be called, or nil when the phase is exhausted.
// Clean & jerk is only reached once no snatch candidate remains.
func NextTurn(s State) *TurnCandidate {
	for _, lift := range EligibleLifts(s.Phase) {
		if c := Candidates(s.Athletes, &s.Ledger, lift); len(c) > 0 {
			next := c[0]
			return &next
		}
	}
	return nil
}
