package engine

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newStateIn(phase Phase, athletes ...Athlete) State {
	s := NewState("S1", GenderMale, []string{"73kg", "81kg"})
	s.Phase = phase
	s.Athletes = append(s.Athletes, athletes...)
	return s
}

func athlete(id string, start int) Athlete {
	return Athlete{
		ID:             id,
		Name:           "Athlete " + id,
		Country:        "NOR",
		Gender:         GenderMale,
		WeightCategory: "73kg",
		StartNumber:    start,
		BodyWeight:     72.5,
		WeighedIn:      true,
	}
}

func mustApply(t *testing.T, s State, cmd Command) State {
	t.Helper()
	if cmd.At.IsZero() {
		cmd.At = t0
	}
	_, ns, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("apply %s: unexpected err %v", cmd.Type, err)
	}
	return ns
}

func declare(athleteID string, lift LiftType, n, w int) Command {
	return Command{Type: CmdDeclareWeight, AthleteID: athleteID, Lift: lift, AttemptNumber: n, Weight: w, Actor: "official"}
}

func judge(athleteID string, lift LiftType, n int, r Result) Command {
	return Command{Type: CmdJudgeAttempt, AttemptID: AttemptID(athleteID, lift, n), Result: r, Actor: "official"}
}

func TestApply_RejectsWithoutMutating(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
		code    Code
	}{
		{
			name:    "illegal transition",
			setup:   newStateIn(PhaseScheduled),
			cmd:     Command{Type: CmdTransitionPhase, Target: PhaseActive, Actor: "chief"},
			wantErr: ErrState,
			code:    CodeIllegalTransition,
		},
		{
			name:    "weigh-in outside weighing",
			setup:   newStateIn(PhaseActive, athlete("A", 1)),
			cmd:     Command{Type: CmdMarkWeighedIn, AthleteID: "A", BodyWeight: 72},
			wantErr: ErrState,
			code:    CodePhaseDisallows,
		},
		{
			name:    "clean and jerk declared during snatch",
			setup:   newStateIn(PhaseSnatchActive, athlete("A", 1)),
			cmd:     declare("A", LiftCleanJerk, 1, 130),
			wantErr: ErrState,
			code:    CodePhaseDisallows,
		},
		{
			name:    "weight out of bounds",
			setup:   newStateIn(PhaseActive, athlete("A", 1)),
			cmd:     declare("A", LiftSnatch, 1, 1000),
			wantErr: ErrValidation,
			code:    CodeAboveMaximum,
		},
		{
			name:    "unknown athlete",
			setup:   newStateIn(PhaseActive),
			cmd:     declare("ghost", LiftSnatch, 1, 100),
			wantErr: ErrAthleteNotFound,
			code:    CodeNotFound,
		},
		{
			name:    "override without actor",
			setup:   newStateIn(PhaseActive, athlete("A", 1)),
			cmd:     Command{Type: CmdDeclareWeight, AthleteID: "A", Lift: LiftSnatch, AttemptNumber: 1, Weight: 100, Override: true},
			wantErr: ErrOverrideActorRequired,
			code:    CodeOverrideActor,
		},
		{
			name:    "unsupported",
			setup:   newStateIn(PhaseActive),
			cmd:     Command{Type: "Teleport"},
			wantErr: ErrUnsupportedCommand,
			code:    CodeUnsupportedCommand,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.setup.Clone()
			events, got, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if c := CodeOf(err); c != tc.code {
				t.Fatalf("want code %s, got %s", tc.code, c)
			}
			if events != nil {
				t.Fatalf("expected no events, got %+v", events)
			}
			if got.Phase != before.Phase || len(got.Ledger.Attempts) != len(before.Ledger.Attempts) || len(got.History) != len(before.History) {
				t.Fatalf("state mutated on rejection")
			}
		})
	}
}

func TestApply_FailedCommandLeavesOriginalUntouched(t *testing.T) {
	s := newStateIn(PhaseSnatchActive, athlete("A", 1))
	s = mustApply(t, s, declare("A", LiftSnatch, 1, 100))

	// Successful apply on a clone must not alias the original ledger.
	_ = mustApply(t, s, judge("A", LiftSnatch, 1, ResultGood))
	if att, _ := s.Ledger.Lookup("A", LiftSnatch, 1); att.Result != ResultPending {
		t.Fatalf("original state was mutated: %+v", att)
	}
}

func TestScenario_LighterWeightGoesFirstThenAttemptNumber(t *testing.T) {
	s := newStateIn(PhaseSnatchActive, athlete("A", 1), athlete("B", 2))
	s = mustApply(t, s, declare("A", LiftSnatch, 1, 100))
	s = mustApply(t, s, declare("B", LiftSnatch, 1, 95))

	next := NextTurn(s)
	if next == nil || next.AthleteID != "B" || next.Weight != 95 {
		t.Fatalf("want B at 95, got %+v", next)
	}

	s = mustApply(t, s, judge("B", LiftSnatch, 1, ResultGood))
	s = mustApply(t, s, declare("B", LiftSnatch, 2, 100))

	next = NextTurn(s)
	if next == nil || next.AthleteID != "A" || next.AttemptNumber != 1 {
		t.Fatalf("want A attempt 1, got %+v", next)
	}
}

func TestScenario_AscendingRule(t *testing.T) {
	s := newStateIn(PhaseSnatchActive, athlete("C", 1))
	s = mustApply(t, s, declare("C", LiftSnatch, 1, 100))
	s = mustApply(t, s, judge("C", LiftSnatch, 1, ResultGood))

	for _, w := range []int{100, 95} {
		_, _, err := Apply(s, declare("C", LiftSnatch, 2, w))
		if CodeOf(err) != CodeNotAscending {
			t.Fatalf("declare %d: want NOT_ASCENDING, got %v", w, err)
		}
	}
	s = mustApply(t, s, declare("C", LiftSnatch, 2, 105))
	if att, ok := s.Ledger.Lookup("C", LiftSnatch, 2); !ok || att.Weight != 105 || att.Result != ResultPending {
		t.Fatalf("want pending 105, got %+v", att)
	}
}

func TestScenario_CompleteBlockedWhileCleanJerkPending(t *testing.T) {
	s := newStateIn(PhaseCleanJerkActive, athlete("A", 1), athlete("B", 2))
	s.Athletes[1].Disqualified = true
	s = mustApply(t, s, declare("A", LiftCleanJerk, 1, 120))

	toComplete := Command{Type: CmdTransitionPhase, Target: PhaseComplete, Actor: "chief"}
	if _, _, err := Apply(s, toComplete); CodeOf(err) != CodeAttemptsPending {
		t.Fatalf("want ATTEMPTS_PENDING, got %v", err)
	}

	s = mustApply(t, s, judge("A", LiftCleanJerk, 1, ResultGood))
	s = mustApply(t, s, declare("A", LiftCleanJerk, 2, 125))
	s = mustApply(t, s, judge("A", LiftCleanJerk, 2, ResultNoLift))
	if _, _, err := Apply(s, toComplete); !errors.Is(err, ErrPrerequisite) {
		t.Fatalf("third attempt still open, want prerequisite error, got %v", err)
	}
	s = mustApply(t, s, declare("A", LiftCleanJerk, 3, 125))
	s = mustApply(t, s, judge("A", LiftCleanJerk, 3, ResultNotAttempted))

	events, s, err := Apply(s, toComplete)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtPhaseChanged) || s.Phase != PhaseComplete {
		t.Fatalf("expected phase complete, got %s", s.Phase)
	}
}

func TestWeighIn_GuardNamesMissingCount(t *testing.T) {
	a := athlete("A", 1)
	b := athlete("B", 2)
	b.WeighedIn = false
	c := athlete("C", 3)
	c.WeighedIn = false
	s := newStateIn(PhaseWeighing, a, b, c)

	_, _, err := Apply(s, Command{Type: CmdTransitionPhase, Target: PhaseReadyToStart, Actor: "chief"})
	var pe *PrerequisiteError
	if !errors.As(err, &pe) || pe.Reason != CodeIncompleteWeighIn || pe.Missing != 2 {
		t.Fatalf("want INCOMPLETE_WEIGH_IN with 2 missing, got %v", err)
	}

	s = mustApply(t, s, Command{Type: CmdMarkWeighedIn, AthleteID: "B", BodyWeight: 72.1, OpeningSnatch: 110, OpeningCleanJerk: 140})
	s = mustApply(t, s, Command{Type: CmdMarkWeighedIn, AthleteID: "C", BodyWeight: 70.9})
	s = mustApply(t, s, Command{Type: CmdTransitionPhase, Target: PhaseReadyToStart, Actor: "chief", Reason: "weigh-in closed"})

	got, _ := s.Athlete("B")
	if got.OpeningSnatch != 110 || got.OpeningCleanJerk != 140 || got.BodyWeight != 72.1 {
		t.Fatalf("weigh-in not recorded: %+v", got)
	}
	if len(s.History) != 1 || s.History[0].From != PhaseWeighing || s.History[0].To != PhaseReadyToStart || s.History[0].Actor != "chief" {
		t.Fatalf("unexpected history %+v", s.History)
	}
}

func TestOverride_BypassesGateAndIsAudited(t *testing.T) {
	s := newStateIn(PhaseSnatchActive, athlete("A", 1))
	s = mustApply(t, s, declare("A", LiftSnatch, 1, 100))
	s = mustApply(t, s, judge("A", LiftSnatch, 1, ResultNoLift))

	cmd := judge("A", LiftSnatch, 1, ResultGood)
	if _, _, err := Apply(s, cmd); CodeOf(err) != CodeInvalidState {
		t.Fatalf("want INVALID_STATE, got %v", err)
	}

	cmd.Override = true
	cmd.Actor = "jury-1"
	events, s, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtOverrideUsed) {
		t.Fatalf("expected override event")
	}
	if len(s.Audit) != 1 || s.Audit[0].Actor != "jury-1" || s.Audit[0].AttemptID != cmd.AttemptID {
		t.Fatalf("override not audited: %+v", s.Audit)
	}
	if s.Ledger.BestGood("A", LiftSnatch) != 100 {
		t.Fatalf("override result not recorded")
	}
}

func TestRegisterAthlete_Normalizes(t *testing.T) {
	s := newStateIn(PhaseScheduled)
	s = mustApply(t, s, Command{Type: CmdRegisterAthlete, Athlete: Athlete{
		ID: "A", Name: "  Ana   Lima ", Country: "bra", WeightCategory: "73KG", StartNumber: 4,
	}})
	a, ok := s.Athlete("A")
	if !ok || a.Name != "Ana Lima" || a.Country != "BRA" || a.Gender != GenderMale {
		t.Fatalf("unexpected athlete %+v", a)
	}

	_, _, err := Apply(s, Command{Type: CmdRegisterAthlete, Athlete: Athlete{ID: "B", Name: "B", WeightCategory: "73kg", StartNumber: 4}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate start number: want validation error, got %v", err)
	}
	_, _, err = Apply(s, Command{Type: CmdRegisterAthlete, Athlete: Athlete{ID: "C", Name: "C", WeightCategory: "102kg", StartNumber: 5}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("category outside session: want validation error, got %v", err)
	}
}

func TestJudge_RecordsLastActedAthleteForTimer(t *testing.T) {
	s := newStateIn(PhaseSnatchActive, athlete("A", 1), athlete("B", 2))
	s = mustApply(t, s, declare("A", LiftSnatch, 1, 90))
	s = mustApply(t, s, declare("B", LiftSnatch, 1, 100))
	s = mustApply(t, s, judge("A", LiftSnatch, 1, ResultGood))

	v := Derive(s)
	if v.Next == nil || v.Next.AthleteID != "A" || v.Next.Weight != 91 {
		t.Fatalf("want A at implied 91, got %+v", v.Next)
	}
	if v.TimerDefaultSec != ConsecutiveTurnSeconds {
		t.Fatalf("want %d, got %d", ConsecutiveTurnSeconds, v.TimerDefaultSec)
	}
	if v.LockedPhase != PhaseCleanJerkActive || v.CurrentLift != LiftSnatch {
		t.Fatalf("unexpected lock %s / lift %s", v.LockedPhase, v.CurrentLift)
	}
}

func TestToggleDisqualification_Audited(t *testing.T) {
	s := newStateIn(PhaseActive, athlete("A", 1))
	s = mustApply(t, s, Command{Type: CmdToggleDisqualification, AthleteID: "A", Disqualified: true, Actor: "tc"})
	a, _ := s.Athlete("A")
	if !a.Disqualified || len(s.Audit) != 1 || s.Audit[0].Action != "disqualification" {
		t.Fatalf("unexpected athlete %+v audit %+v", a, s.Audit)
	}

	again := Command{Type: CmdToggleDisqualification, AthleteID: "A", Disqualified: true, Actor: "tc"}
	if _, ns, err := Apply(s, again); CodeOf(err) != CodeInvalidState || len(ns.Audit) != 1 {
		t.Fatalf("repeat toggle: want INVALID_STATE and no new audit, got %v / %d entries", err, len(ns.Audit))
	}
}

func TestAssignMedal_OverlayOnly(t *testing.T) {
	s := newStateIn(PhaseComplete, athlete("A", 1), athlete("B", 2))
	s = mustApply(t, s, Command{Type: CmdAssignMedal, AthleteID: "B", Medal: MedalGold, Actor: "tc"})

	v := Derive(s)
	if len(v.Medals) != 1 || v.Medals[0].Country != "NOR" || v.Medals[0].Gold != 1 {
		t.Fatalf("unexpected medal table %+v", v.Medals)
	}
	for _, e := range v.Rankings["73kg"] {
		if e.Rank != nil {
			t.Fatalf("no totals, so nobody is ranked; got %+v", e)
		}
	}

	if _, _, err := Apply(s, Command{Type: CmdAssignMedal, AthleteID: "A", Medal: "platinum"}); CodeOf(err) != CodeInvalidInput {
		t.Fatalf("want INVALID_INPUT, got %v", err)
	}
}
