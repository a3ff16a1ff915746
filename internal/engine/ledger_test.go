package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_DeclarationCreatesPending(t *testing.T) {
	l := NewLedger()
	att, err := l.RecordDeclaration("A", LiftSnatch, 1, 100, false, t0)
	require.NoError(t, err)
	assert.Equal(t, ResultPending, att.Result)
	assert.Equal(t, 0, att.EditCount)
	assert.Equal(t, AttemptID("A", LiftSnatch, 1), att.ID)
	assert.Equal(t, t0, att.DeclaredAt)
}

func TestLedger_EditQuota(t *testing.T) {
	l := NewLedger()
	_, err := l.RecordDeclaration("A", LiftSnatch, 1, 100, false, t0)
	require.NoError(t, err)

	// Re-declaring the same weight is not an edit.
	att, err := l.RecordDeclaration("A", LiftSnatch, 1, 100, false, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, att.EditCount)

	for i, w := range []int{101, 102, 103} {
		att, err = l.RecordDeclaration("A", LiftSnatch, 1, w, false, t0)
		require.NoError(t, err)
		assert.Equal(t, i+1, att.EditCount)
	}

	_, err = l.RecordDeclaration("A", LiftSnatch, 1, 104, false, t0)
	assert.Equal(t, CodeEditLimitExceeded, CodeOf(err))
	got, _ := l.Lookup("A", LiftSnatch, 1)
	assert.Equal(t, 103, got.Weight, "rejected edit must not persist")

	att, err = l.RecordDeclaration("A", LiftSnatch, 1, 104, true, t0)
	require.NoError(t, err)
	assert.Equal(t, 104, att.Weight)
	assert.Equal(t, 4, att.EditCount)
}

func TestLedger_ResultRequiresPending(t *testing.T) {
	l := NewLedger()
	_, err := l.RecordDeclaration("A", LiftCleanJerk, 1, 130, false, t0)
	require.NoError(t, err)
	id := AttemptID("A", LiftCleanJerk, 1)

	_, err = l.RecordResult(id, ResultPending, false, t0)
	assert.ErrorIs(t, err, ErrValidation)

	att, err := l.RecordResult(id, ResultGood, false, t0)
	require.NoError(t, err)
	assert.Equal(t, ResultGood, att.Result)

	_, err = l.RecordResult(id, ResultNoLift, false, t0)
	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, CodeInvalidState, CodeOf(err))

	_, err = l.RecordDeclaration("A", LiftCleanJerk, 1, 135, false, t0)
	assert.ErrorIs(t, err, ErrState, "judged attempts are immutable without override")

	_, err = l.RecordResult("A/clean_and_jerk/3", ResultGood, false, t0)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestLedger_SlotValidation(t *testing.T) {
	l := NewLedger()
	_, err := l.RecordDeclaration("A", LiftSnatch, 4, 100, true, t0)
	assert.Equal(t, CodeInvalidAttemptNumber, CodeOf(err))
	_, err = l.RecordDeclaration("A", "bench", 1, 100, false, t0)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	_, err = l.RecordDeclaration("A", LiftSnatch, 1, 0, true, t0)
	assert.Equal(t, CodeBelowMinimum, CodeOf(err), "bounds hold even under override")
}

func TestLedger_ListAttemptsOrdered(t *testing.T) {
	l := NewLedger()
	for _, c := range []struct {
		lift LiftType
		n, w int
	}{{LiftCleanJerk, 1, 130}, {LiftSnatch, 2, 105}, {LiftSnatch, 1, 100}} {
		_, err := l.RecordDeclaration("A", c.lift, c.n, c.w, false, t0)
		require.NoError(t, err)
	}
	_, err := l.RecordDeclaration("B", LiftSnatch, 1, 90, false, t0)
	require.NoError(t, err)

	got := l.ListAttempts("A")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A/snatch/1", "A/snatch/2", "A/clean_and_jerk/1"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestLedger_CloneIsIndependent(t *testing.T) {
	l := NewLedger()
	_, err := l.RecordWeightChange("A", LiftSnatch, 1, 100, t0)
	require.NoError(t, err)

	c := l.Clone()
	_, err = c.RecordWeightChange("A", LiftSnatch, 1, 101, t0)
	require.NoError(t, err)

	assert.Equal(t, 1, l.ChangeCount("A", LiftSnatch))
	assert.Equal(t, 2, c.ChangeCount("A", LiftSnatch))
	orig, _ := l.Lookup("A", LiftSnatch, 1)
	assert.Equal(t, 100, orig.Weight)
}
