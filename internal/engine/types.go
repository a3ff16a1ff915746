package engine

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type LiftType string

const (
	LiftSnatch    LiftType = "snatch"
	LiftCleanJerk LiftType = "clean_and_jerk"
)

// Lifts lists lift types in competition order.
var Lifts = []LiftType{LiftSnatch, LiftCleanJerk}

func (l LiftType) Valid() bool { return l == LiftSnatch || l == LiftCleanJerk }

type Result string

const (
	ResultNotCreated   Result = "not_created"
	ResultPending      Result = "pending"
	ResultGood         Result = "good"
	ResultNoLift       Result = "no_lift"
	ResultNotAttempted Result = "not_attempted"
)

// Judged reports whether r is a terminal referee outcome.
func (r Result) Judged() bool {
	return r == ResultGood || r == ResultNoLift || r == ResultNotAttempted
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

func (m Medal) Valid() bool {
	switch m {
	case MedalNone, MedalGold, MedalSilver, MedalBronze:
		return true
	}
	return false
}

const (
	MinWeight        = 1
	MaxWeight        = 999
	MaxAttempts      = 3
	MaxEdits         = 3
	MaxWeightChanges = 2
)

type Athlete struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Country          string  `json:"country"`
	TeamID           string  `json:"team_id,omitempty"`
	Gender           Gender  `json:"gender"`
	WeightCategory   string  `json:"weight_category"`
	StartNumber      int     `json:"start_number"`
	LotNumber        int     `json:"lot_number"`
	BodyWeight       float64 `json:"body_weight"`
	WeighedIn        bool    `json:"weighed_in"`
	OpeningSnatch    int     `json:"opening_snatch"`
	OpeningCleanJerk int     `json:"opening_clean_jerk"`
	Disqualified     bool    `json:"is_disqualified"`
	Medal            Medal   `json:"medal,omitempty"`
}

// Opening returns the declared opening weight for lift, 0 when undeclared.
func (a Athlete) Opening(lift LiftType) int {
	if lift == LiftSnatch {
		return a.OpeningSnatch
	}
	return a.OpeningCleanJerk
}

type Attempt struct {
	ID         string    `json:"id"`
	AthleteID  string    `json:"athlete_id"`
	Lift       LiftType  `json:"lift_type"`
	Number     int       `json:"attempt_number"`
	Weight     int       `json:"weight"`
	Result     Result    `json:"result"`
	EditCount  int       `json:"edit_count"`
	DeclaredAt time.Time `json:"declared_at"`
	JudgedAt   time.Time `json:"judged_at,omitzero"`
}

// AuditEntry records an override use or a disqualification toggle.
type AuditEntry struct {
	Seq       int       `json:"seq"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	AthleteID string    `json:"athlete_id,omitempty"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// NormalizeAthlete trims registration input and validates the fields the engine depends on.
func NormalizeAthlete(a Athlete) (Athlete, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.Join(strings.Fields(a.Name), " ")
	a.Country = cases.Upper(language.Und).String(strings.TrimSpace(a.Country))
	a.WeightCategory = strings.TrimSpace(a.WeightCategory)

	switch {
	case a.ID == "":
		return Athlete{}, rejected(CodeInvalidInput, "athlete id is required")
	case a.Name == "":
		return Athlete{}, rejected(CodeInvalidInput, "athlete name is required")
	case a.WeightCategory == "":
		return Athlete{}, rejected(CodeInvalidInput, "weight category is required")
	case a.StartNumber <= 0:
		return Athlete{}, rejected(CodeInvalidInput, "start number must be positive")
	case a.OpeningSnatch < 0 || a.OpeningCleanJerk < 0:
		return Athlete{}, rejected(CodeBelowMinimum, "opening weights cannot be negative")
	case a.OpeningSnatch > MaxWeight || a.OpeningCleanJerk > MaxWeight:
		return Athlete{}, rejected(CodeAboveMaximum, "opening weights cannot exceed %d", MaxWeight)
	}
	return a, nil
}

// SameCategory compares weight category labels case-insensitively ("+87kg" == "+87KG").
func SameCategory(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
