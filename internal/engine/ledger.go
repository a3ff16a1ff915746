package engine

import (
	"fmt"
	"slices"
	"time"
)

// Ledger is the authoritative record of declared and judged attempts for one session.
// Attempts are unique per (athlete, lift, number). Changes counts formal weight-change
// requests per athlete and lift, separately from each attempt's EditCount.
type Ledger struct {
	Attempts []Attempt      `json:"attempts"`
	Changes  map[string]int `json:"weight_changes"`
}

func NewLedger() Ledger {
	return Ledger{Attempts: []Attempt{}, Changes: map[string]int{}}
}

// AttemptID derives the stable id of the attempt slot for (athlete, lift, number).
func AttemptID(athleteID string, lift LiftType, number int) string {
	return fmt.Sprintf("%s/%s/%d", athleteID, lift, number)
}

// ChangeKey is the Changes map key for an athlete and lift.
func ChangeKey(athleteID string, lift LiftType) string {
	return athleteID + "/" + string(lift)
}

func (l Ledger) Clone() Ledger {
	out := Ledger{
		Attempts: slices.Clone(l.Attempts),
		Changes:  make(map[string]int, len(l.Changes)),
	}
	if out.Attempts == nil {
		out.Attempts = []Attempt{}
	}
	for k, v := range l.Changes {
		out.Changes[k] = v
	}
	return out
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.Attempts {
		if l.Attempts[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the attempt with the given id.
func (l *Ledger) Find(id string) (Attempt, bool) {
	if i := l.indexOf(id); i >= 0 {
		return l.Attempts[i], true
	}
	return Attempt{}, false
}

// Lookup returns the attempt in slot (athlete, lift, number).
func (l *Ledger) Lookup(athleteID string, lift LiftType, number int) (Attempt, bool) {
	return l.Find(AttemptID(athleteID, lift, number))
}

// ListAttempts returns an athlete's attempts, snatch before clean & jerk, by attempt number.
func (l *Ledger) ListAttempts(athleteID string) []Attempt {
	var out []Attempt
	for _, a := range l.Attempts {
		if a.AthleteID == athleteID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Attempt) int {
		if a.Lift != b.Lift {
			if a.Lift == LiftSnatch {
				return -1
			}
			return 1
		}
		return a.Number - b.Number
	})
	return out
}

// BestGood is the heaviest good-result weight for athlete and lift, 0 when none.
func (l *Ledger) BestGood(athleteID string, lift LiftType) int {
	best := 0
	for _, a := range l.Attempts {
		if a.AthleteID == athleteID && a.Lift == lift && a.Result == ResultGood && a.Weight > best {
			best = a.Weight
		}
	}
	return best
}

// UsedAttempts counts slots for athlete and lift whose result is pending, good or no lift.
func (l *Ledger) UsedAttempts(athleteID string, lift LiftType) int {
	n := 0
	for _, a := range l.Attempts {
		if a.AthleteID != athleteID || a.Lift != lift {
			continue
		}
		if a.Result != ResultNotAttempted && a.Result != ResultNotCreated {
			n++
		}
	}
	return n
}

func (l *Ledger) ChangeCount(athleteID string, lift LiftType) int {
	return l.Changes[ChangeKey(athleteID, lift)]
}

func checkSlot(lift LiftType, number int) error {
	if !lift.Valid() {
		return rejected(CodeInvalidInput, "unknown lift type %q", lift)
	}
	if number < 1 || number > MaxAttempts {
		return rejected(CodeInvalidAttemptNumber, "attempt number %d outside 1..%d", number, MaxAttempts)
	}
	return nil
}

func checkBounds(weight int) error {
	if weight < MinWeight {
		return rejected(CodeBelowMinimum, "weight %d below %d", weight, MinWeight)
	}
	if weight > MaxWeight {
		return rejected(CodeAboveMaximum, "weight %d above %d", weight, MaxWeight)
	}
	return nil
}

// RecordDeclaration creates the attempt slot as pending or amends its weight.
// Amending a pending attempt to a different weight consumes one edit; the
// fourth edit is rejected unless override is set. Judged attempts can only be
// re-weighed with override. Bounds and slot validity are never bypassed.
func (l *Ledger) RecordDeclaration(athleteID string, lift LiftType, number, weight int, override bool, at time.Time) (Attempt, error) {
	if err := checkSlot(lift, number); err != nil {
		return Attempt{}, err
	}
	if err := checkBounds(weight); err != nil {
		return Attempt{}, err
	}

	id := AttemptID(athleteID, lift, number)
	i := l.indexOf(id)
	if i < 0 {
		a := Attempt{
			ID:         id,
			AthleteID:  athleteID,
			Lift:       lift,
			Number:     number,
			Weight:     weight,
			Result:     ResultPending,
			DeclaredAt: at,
		}
		l.Attempts = append(l.Attempts, a)
		return a, nil
	}

	a := l.Attempts[i]
	if a.Result != ResultPending && !override {
		return Attempt{}, invalidState("attempt %s already judged %s", id, a.Result)
	}
	if a.Weight == weight {
		return a, nil
	}
	if a.Result == ResultPending {
		if a.EditCount >= MaxEdits && !override {
			return Attempt{}, rejected(CodeEditLimitExceeded, "attempt %s already amended %d times", id, a.EditCount)
		}
		a.EditCount++
	}
	a.Weight = weight
	a.DeclaredAt = at
	l.Attempts[i] = a
	return a, nil
}

// RecordResult judges a pending attempt. Non-pending attempts require override.
func (l *Ledger) RecordResult(attemptID string, result Result, override bool, at time.Time) (Attempt, error) {
	if !result.Judged() {
		return Attempt{}, rejected(CodeInvalidResult, "result %q cannot be recorded", result)
	}
	i := l.indexOf(attemptID)
	if i < 0 {
		return Attempt{}, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}
	a := l.Attempts[i]
	if a.Result != ResultPending && !override {
		return Attempt{}, invalidState("attempt %s is %s, not pending", attemptID, a.Result)
	}
	a.Result = result
	a.JudgedAt = at
	l.Attempts[i] = a
	return a, nil
}

// RecordWeightChange applies an already validated change request and consumes
// one change from the athlete's quota for the lift. A missing slot is created
// pending at the new weight.
func (l *Ledger) RecordWeightChange(athleteID string, lift LiftType, number, weight int, at time.Time) (Attempt, error) {
	if err := checkSlot(lift, number); err != nil {
		return Attempt{}, err
	}
	if err := checkBounds(weight); err != nil {
		return Attempt{}, err
	}
	id := AttemptID(athleteID, lift, number)
	var a Attempt
	if i := l.indexOf(id); i >= 0 {
		a = l.Attempts[i]
		a.Weight = weight
		a.DeclaredAt = at
		l.Attempts[i] = a
	} else {
		a = Attempt{ID: id, AthleteID: athleteID, Lift: lift, Number: number, Weight: weight, Result: ResultPending, DeclaredAt: at}
		l.Attempts = append(l.Attempts, a)
	}
	if l.Changes == nil {
		l.Changes = map[string]int{}
	}
	l.Changes[ChangeKey(athleteID, lift)]++
	return a, nil
}
