package engine

const (
	DefaultTurnSeconds     = 60
	ConsecutiveTurnSeconds = 120
)

// DurationFor seeds the clock for next. An athlete called again right after
// their own attempt gets double time. previousAthleteID is the athlete whose
// attempt was last judged, not the last candidate shown.
func DurationFor(next *TurnCandidate, previousAthleteID string) int {
	if next != nil && previousAthleteID != "" && next.AthleteID == previousAthleteID {
		return ConsecutiveTurnSeconds
	}
	return DefaultTurnSeconds
}
