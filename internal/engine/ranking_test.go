package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifted(t *testing.T, l *Ledger, athleteID string, lift LiftType, n, w int, r Result) {
	t.Helper()
	_, err := l.RecordDeclaration(athleteID, lift, n, w, true, t0)
	require.NoError(t, err)
	_, err = l.RecordResult(AttemptID(athleteID, lift, n), r, true, t0)
	require.NoError(t, err)
}

func TestComputeRankings_TotalsAndTieBreaks(t *testing.T) {
	heavy := athlete("heavy", 1)
	heavy.BodyWeight = 72.9
	light := athlete("light", 2)
	light.BodyWeight = 71.3
	bombed := athlete("bombed", 3)
	dq := athlete("dq", 4)
	dq.Disqualified = true
	other := athlete("other", 5)
	other.WeightCategory = "81kg"

	l := NewLedger()
	for _, id := range []string{"heavy", "light"} {
		lifted(t, &l, id, LiftSnatch, 1, 100, ResultGood)
		lifted(t, &l, id, LiftCleanJerk, 1, 130, ResultGood)
	}
	lifted(t, &l, "light", LiftCleanJerk, 2, 135, ResultNoLift)
	lifted(t, &l, "bombed", LiftSnatch, 1, 110, ResultGood)
	for n := 1; n <= 3; n++ {
		lifted(t, &l, "bombed", LiftCleanJerk, n, 140, ResultNoLift)
	}
	lifted(t, &l, "dq", LiftSnatch, 1, 120, ResultGood)
	lifted(t, &l, "dq", LiftCleanJerk, 1, 150, ResultGood)
	lifted(t, &l, "other", LiftSnatch, 1, 90, ResultGood)
	lifted(t, &l, "other", LiftCleanJerk, 1, 110, ResultGood)

	r := ComputeRankings([]Athlete{heavy, light, bombed, dq, other}, &l)
	require.Len(t, r, 2)

	cat := r["73kg"]
	require.Len(t, cat, 4)
	ids := []string{cat[0].AthleteID, cat[1].AthleteID, cat[2].AthleteID, cat[3].AthleteID}
	assert.Equal(t, []string{"light", "heavy", "bombed", "dq"}, ids)

	require.NotNil(t, cat[0].Rank)
	assert.Equal(t, 1, *cat[0].Rank)
	assert.Equal(t, 230, cat[0].Total)
	require.NotNil(t, cat[1].Rank)
	assert.Equal(t, 2, *cat[1].Rank)

	assert.Equal(t, 110, cat[2].BestSnatch)
	assert.Equal(t, 0, cat[2].BestCleanJerk)
	assert.Equal(t, 0, cat[2].Total)
	assert.Nil(t, cat[2].Rank)

	assert.Equal(t, 270, cat[3].Total, "disqualified athletes keep their lifts")
	assert.Nil(t, cat[3].Rank)

	other81 := r["81kg"]
	require.Len(t, other81, 1)
	assert.Equal(t, 1, *other81[0].Rank, "categories rank independently")

	assert.Len(t, r.ByAthlete(), 5)
}

func TestComputeRankings_StartNumberBreaksFullTie(t *testing.T) {
	a := athlete("A", 9)
	b := athlete("B", 2)
	l := NewLedger()
	for _, id := range []string{"A", "B"} {
		lifted(t, &l, id, LiftSnatch, 1, 100, ResultGood)
		lifted(t, &l, id, LiftCleanJerk, 1, 120, ResultGood)
	}
	cat := ComputeRankings([]Athlete{a, b}, &l)["73kg"]
	assert.Equal(t, "B", cat[0].AthleteID)
	assert.Equal(t, 2, *cat[1].Rank)
}

func TestComputeRankings_CategoryLabelsFoldCase(t *testing.T) {
	a := athlete("A", 1)
	b := athlete("B", 2)
	b.WeightCategory = "73KG"
	r := ComputeRankings([]Athlete{a, b}, &Ledger{})
	assert.Len(t, r, 1)
}

func TestMedalTable(t *testing.T) {
	mk := func(id, country string, m Medal) Athlete {
		a := athlete(id, 1)
		a.Country = country
		a.Medal = m
		return a
	}
	table := MedalTable([]Athlete{
		mk("1", "CHN", MedalSilver),
		mk("2", "NOR", MedalGold),
		mk("3", "CHN", MedalBronze),
		mk("4", "USA", MedalSilver),
		mk("5", "USA", MedalNone),
		mk("6", "ARM", MedalSilver),
	})
	require.Len(t, table, 4)
	assert.Equal(t, MedalCount{Country: "NOR", Gold: 1}, table[0])
	assert.Equal(t, MedalCount{Country: "CHN", Silver: 1, Bronze: 1}, table[1])
	assert.Equal(t, "ARM", table[2].Country)
	assert.Equal(t, "USA", table[3].Country)
}
