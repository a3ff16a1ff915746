package engine

import (
	"fmt"
	"strings"
	"time"
)

type State struct {
	SessionID   string       `json:"session_id"`
	Gender      Gender       `json:"gender"`
	Categories  []string     `json:"weight_categories"`
	Phase       Phase        `json:"current_phase"`
	Athletes    []Athlete    `json:"athletes"`
	Ledger      Ledger       `json:"ledger"`
	History     []Transition `json:"history"`
	Audit       []AuditEntry `json:"audit"`
	LastActedID string       `json:"last_acted_athlete_id,omitempty"`
}

type CommandType string

const (
	CmdRegisterAthlete        CommandType = "RegisterAthlete"
	CmdMarkWeighedIn          CommandType = "MarkWeighedIn"
	CmdToggleDisqualification CommandType = "ToggleDisqualification"
	CmdAssignMedal            CommandType = "AssignMedal"
	CmdDeclareWeight          CommandType = "DeclareWeight"
	CmdRequestWeightChange    CommandType = "RequestWeightChange"
	CmdJudgeAttempt           CommandType = "JudgeAttempt"
	CmdTransitionPhase        CommandType = "TransitionPhase"
)

/*
	CmdRegisterAthlete        -> EvtAthleteRegistered
	CmdMarkWeighedIn          -> EvtAthleteWeighedIn
	CmdToggleDisqualification -> EvtDisqualificationChanged
	CmdAssignMedal            -> EvtMedalAssigned
	CmdDeclareWeight          -> EvtAttemptDeclared | EvtAttemptAmended
	CmdRequestWeightChange    -> EvtWeightChanged
	CmdJudgeAttempt           -> EvtAttemptJudged
	CmdTransitionPhase        -> EvtPhaseChanged
	Any command with Override -> + EvtOverrideUsed
*/

type Command struct {
	Type     CommandType
	Actor    string
	Override bool
	Reason   string
	At       time.Time

	AthleteID     string
	Athlete       Athlete
	Lift          LiftType
	AttemptNumber int
	Weight        int
	AttemptID     string
	Result        Result
	Target        Phase

	BodyWeight       float64
	OpeningSnatch    int
	OpeningCleanJerk int
	Disqualified     bool
	Medal            Medal
}

type EventType string

const (
	EvtAthleteRegistered       EventType = "AthleteRegistered"
	EvtAthleteWeighedIn        EventType = "AthleteWeighedIn"
	EvtDisqualificationChanged EventType = "DisqualificationChanged"
	EvtMedalAssigned           EventType = "MedalAssigned"
	EvtAttemptDeclared         EventType = "AttemptDeclared"
	EvtAttemptAmended          EventType = "AttemptAmended"
	EvtWeightChanged           EventType = "WeightChanged"
	EvtAttemptJudged           EventType = "AttemptJudged"
	EvtPhaseChanged            EventType = "PhaseChanged"
	EvtOverrideUsed            EventType = "OverrideUsed"
)

type Event struct {
	Type      EventType `json:"type"`
	AthleteID string    `json:"athlete_id,omitempty"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Weight    int       `json:"weight,omitempty"`
	Result    Result    `json:"result,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
}

// Apply validates cmd against s and returns the resulting state. On error the
// returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Override && strings.TrimSpace(cmd.Actor) == "" {
		return nil, s, ErrOverrideActorRequired
	}
	if cmd.At.IsZero() {
		cmd.At = time.Now().UTC()
	}
	if cmd.AthleteID == "" && cmd.AttemptID != "" {
		if att, ok := s.Ledger.Find(cmd.AttemptID); ok {
			cmd.AthleteID = att.AthleteID
		}
	}

	ns := s.Clone()
	var events []Event
	var err error

	switch cmd.Type {
	case CmdRegisterAthlete:
		events, err = registerAthlete(&ns, cmd)
	case CmdMarkWeighedIn:
		events, err = markWeighedIn(&ns, cmd)
	case CmdToggleDisqualification:
		events, err = toggleDisqualification(&ns, cmd)
	case CmdAssignMedal:
		events, err = assignMedal(&ns, cmd)
	case CmdDeclareWeight:
		events, err = declareWeight(&ns, cmd)
	case CmdRequestWeightChange:
		events, err = requestWeightChange(&ns, cmd)
	case CmdJudgeAttempt:
		events, err = judgeAttempt(&ns, cmd)
	case CmdTransitionPhase:
		events, err = transitionPhase(&ns, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
	if err != nil {
		return nil, s, err
	}

	if cmd.Override {
		ns.appendAudit(cmd, "override:"+string(cmd.Type), fmt.Sprintf("weight=%d result=%s target=%s", cmd.Weight, cmd.Result, cmd.Target))
		events = append(events, Event{Type: EvtOverrideUsed, AthleteID: cmd.AthleteID, AttemptID: cmd.AttemptID})
	}
	return events, ns, nil
}

func registerAthlete(s *State, cmd Command) ([]Event, error) {
	switch s.Phase {
	case PhaseScheduled, PhasePostponed, PhaseWeighing:
	default:
		if !cmd.Override {
			return nil, phaseDisallows(s.Phase, "registration")
		}
	}
	a, err := NormalizeAthlete(cmd.Athlete)
	if err != nil {
		return nil, err
	}
	if s.Gender != "" && a.Gender != "" && a.Gender != s.Gender {
		return nil, rejected(CodeInvalidInput, "athlete gender %s does not match session %s", a.Gender, s.Gender)
	}
	if !s.hasCategory(a.WeightCategory) {
		return nil, rejected(CodeInvalidInput, "weight category %q not in session", a.WeightCategory)
	}
	for _, other := range s.Athletes {
		if other.ID == a.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAthlete, a.ID)
		}
		if other.StartNumber == a.StartNumber {
			return nil, rejected(CodeInvalidInput, "start number %d already assigned to %s", a.StartNumber, other.ID)
		}
	}
	if a.Gender == "" {
		a.Gender = s.Gender
	}
	a.WeighedIn = false
	a.Disqualified = false
	a.Medal = MedalNone
	s.Athletes = append(s.Athletes, a)
	return []Event{{Type: EvtAthleteRegistered, AthleteID: a.ID}}, nil
}

func markWeighedIn(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhaseWeighing && !cmd.Override {
		return nil, phaseDisallows(s.Phase, "weigh-in")
	}
	a, err := s.athlete(cmd.AthleteID)
	if err != nil {
		return nil, err
	}
	if cmd.BodyWeight <= 0 {
		return nil, rejected(CodeBelowMinimum, "body weight must be positive")
	}
	for _, w := range []int{cmd.OpeningSnatch, cmd.OpeningCleanJerk} {
		if w < 0 {
			return nil, rejected(CodeBelowMinimum, "opening weights cannot be negative")
		}
		if w > MaxWeight {
			return nil, rejected(CodeAboveMaximum, "opening weights cannot exceed %d", MaxWeight)
		}
	}
	a.BodyWeight = cmd.BodyWeight
	a.WeighedIn = true
	if cmd.OpeningSnatch > 0 {
		a.OpeningSnatch = cmd.OpeningSnatch
	}
	if cmd.OpeningCleanJerk > 0 {
		a.OpeningCleanJerk = cmd.OpeningCleanJerk
	}
	return []Event{{Type: EvtAthleteWeighedIn, AthleteID: a.ID}}, nil
}

func toggleDisqualification(s *State, cmd Command) ([]Event, error) {
	a, err := s.athlete(cmd.AthleteID)
	if err != nil {
		return nil, err
	}
	if a.Disqualified == cmd.Disqualified {
		return nil, invalidState("athlete %s already has disqualified=%t", a.ID, a.Disqualified)
	}
	a.Disqualified = cmd.Disqualified
	s.appendAudit(cmd, "disqualification", fmt.Sprintf("disqualified=%t", cmd.Disqualified))
	return []Event{{Type: EvtDisqualificationChanged, AthleteID: a.ID}}, nil
}

func assignMedal(s *State, cmd Command) ([]Event, error) {
	if !cmd.Medal.Valid() {
		return nil, rejected(CodeInvalidInput, "unknown medal %q", cmd.Medal)
	}
	a, err := s.athlete(cmd.AthleteID)
	if err != nil {
		return nil, err
	}
	a.Medal = cmd.Medal
	return []Event{{Type: EvtMedalAssigned, AthleteID: a.ID}}, nil
}

func declareWeight(s *State, cmd Command) ([]Event, error) {
	a, err := s.athlete(cmd.AthleteID)
	if err != nil {
		return nil, err
	}
	if !cmd.Override {
		if !declarable(s.Phase, cmd.Lift) {
			return nil, phaseDisallows(s.Phase, fmt.Sprintf("%s declaration", cmd.Lift))
		}
		if err := ValidateDeclaration(*a, cmd.Lift, cmd.AttemptNumber, cmd.Weight, &s.Ledger); err != nil {
			return nil, err
		}
	}
	_, existed := s.Ledger.Lookup(a.ID, cmd.Lift, cmd.AttemptNumber)
	att, err := s.Ledger.RecordDeclaration(a.ID, cmd.Lift, cmd.AttemptNumber, cmd.Weight, cmd.Override, cmd.At)
	if err != nil {
		return nil, err
	}
	evt := EvtAttemptDeclared
	if existed {
		evt = EvtAttemptAmended
	}
	return []Event{{Type: evt, AthleteID: a.ID, AttemptID: att.ID, Weight: att.Weight}}, nil
}

func requestWeightChange(s *State, cmd Command) ([]Event, error) {
	a, err := s.athlete(cmd.AthleteID)
	if err != nil {
		return nil, err
	}
	if !cmd.Override {
		if !declarable(s.Phase, cmd.Lift) {
			return nil, phaseDisallows(s.Phase, fmt.Sprintf("%s weight change", cmd.Lift))
		}
		if err := ValidateWeightChange(*a, cmd.Lift, cmd.AttemptNumber, cmd.Weight, &s.Ledger); err != nil {
			return nil, err
		}
	}
	att, err := s.Ledger.RecordWeightChange(a.ID, cmd.Lift, cmd.AttemptNumber, cmd.Weight, cmd.At)
	if err != nil {
		return nil, err
	}
	return []Event{{Type: EvtWeightChanged, AthleteID: a.ID, AttemptID: att.ID, Weight: att.Weight}}, nil
}

func judgeAttempt(s *State, cmd Command) ([]Event, error) {
	att, ok := s.Ledger.Find(cmd.AttemptID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, cmd.AttemptID)
	}
	if !cmd.Override && !judgeable(s.Phase, att.Lift) {
		return nil, phaseDisallows(s.Phase, fmt.Sprintf("judging %s", att.Lift))
	}
	att, err := s.Ledger.RecordResult(cmd.AttemptID, cmd.Result, cmd.Override, cmd.At)
	if err != nil {
		return nil, err
	}
	s.LastActedID = att.AthleteID
	return []Event{{Type: EvtAttemptJudged, AthleteID: att.AthleteID, AttemptID: att.ID, Weight: att.Weight, Result: att.Result}}, nil
}

func transitionPhase(s *State, cmd Command) ([]Event, error) {
	from, to := s.Phase, cmd.Target
	if !CanTransition(from, to) {
		return nil, IllegalTransition(from, to)
	}
	if !cmd.Override {
		if err := checkGuard(*s, to); err != nil {
			return nil, err
		}
	}
	s.Phase = to
	s.History = append(s.History, Transition{
		Seq:    len(s.History) + 1,
		From:   from,
		To:     to,
		Actor:  cmd.Actor,
		Reason: cmd.Reason,
		At:     cmd.At,
	})
	return []Event{{Type: EvtPhaseChanged, Phase: to}}, nil
}
