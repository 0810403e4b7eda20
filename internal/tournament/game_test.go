package tournament

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultTypeAllows(t *testing.T) {
	testCases := []struct {
		resultType ResultType
		allowed    []Result
	}{
		{Standard, []Result{WhiteWin, BlackWin, Draw, Ongoing}},
		{WhiteForfeit, []Result{BlackWin}},
		{BlackForfeit, []Result{WhiteWin}},
		{WhiteDefault, []Result{BlackWin}},
		{BlackDefault, []Result{WhiteWin}},
		{WhiteTimeout, []Result{BlackWin, Draw}},
		{BlackTimeout, []Result{WhiteWin, Draw}},
		{DoubleForfeit, []Result{Ongoing}},
		{Adjourned, []Result{Ongoing}},
		{Cancelled, []Result{Ongoing}},
	}

	all := []Result{WhiteWin, BlackWin, Draw, Ongoing}
	for _, tc := range testCases {
		t.Run(string(tc.resultType), func(t *testing.T) {
			for _, r := range all {
				assert.Equal(t, contains(tc.allowed, r), tc.resultType.Allows(r), "result %s", r)
			}
		})
	}
}

func contains(results []Result, r Result) bool {
	for _, x := range results {
		if x == r {
			return true
		}
	}
	return false
}

func TestPointsSumToOne(t *testing.T) {
	for _, r := range []Result{WhiteWin, BlackWin, Draw} {
		w, b := r.Points()
		assert.Equal(t, 1.0, w+b, "result %s", r)
	}
	w, b := Ongoing.Points()
	assert.Equal(t, 0.0, w+b)
}

func TestParseResult(t *testing.T) {
	r, err := ParseResult("1/2-1/2")
	require.NoError(t, err)
	assert.Equal(t, Draw, r)

	_, err = ParseResult("½-½")
	assert.ErrorIs(t, err, ErrUnknownResult)

	rt, err := ParseResultType("")
	require.NoError(t, err)
	assert.Equal(t, Standard, rt)

	_, err = ParseResultType("walkover")
	assert.ErrorIs(t, err, ErrUnknownResultType)
}

func TestGameIsFinal(t *testing.T) {
	black := uuid.New()
	testCases := []struct {
		name     string
		game     Game
		expected bool
	}{
		{"approved decisive", Game{BlackID: &black, Result: WhiteWin, ResultType: Standard, Approval: Approved}, true},
		{"unapproved forfeit", Game{BlackID: &black, Result: BlackWin, ResultType: WhiteForfeit, Approval: Unapproved}, false},
		{"approved forfeit", Game{BlackID: &black, Result: BlackWin, ResultType: WhiteForfeit, Approval: Approved}, true},
		{"ongoing", Game{BlackID: &black, Result: Ongoing, ResultType: Standard, Approval: Approved}, false},
		{"adjourned", Game{BlackID: &black, Result: Ongoing, ResultType: Adjourned, Approval: Approved}, false},
		{"double forfeit", Game{BlackID: &black, Result: Ongoing, ResultType: DoubleForfeit, Approval: Approved}, true},
		{"cancelled", Game{BlackID: &black, Result: Ongoing, ResultType: Cancelled, Approval: Approved}, true},
		{"bye", Game{Result: WhiteWin, ResultType: Standard, Approval: Approved}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.game.IsFinal())
		})
	}
}

func TestGameOpponentOf(t *testing.T) {
	white, black := uuid.New(), uuid.New()
	g := Game{WhiteID: white, BlackID: &black, Result: Draw}

	opp, ok := g.OpponentOf(white)
	require.True(t, ok)
	assert.Equal(t, black, opp)
	assert.Equal(t, 0.5, g.ScoreOf(black))

	_, ok = g.OpponentOf(uuid.New())
	assert.False(t, ok)

	bye := Game{WhiteID: white, Result: WhiteWin}
	_, ok = bye.OpponentOf(white)
	assert.False(t, ok)
	assert.False(t, bye.IsPlayed())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusCreated.CanTransition(StatusOngoing))
	assert.True(t, StatusOngoing.CanTransition(StatusPaused))
	assert.True(t, StatusPaused.CanTransition(StatusOngoing))
	assert.False(t, StatusOngoing.CanTransition(StatusCreated))
	assert.False(t, StatusCompleted.CanTransition(StatusOngoing))
	assert.False(t, StatusCancelled.CanTransition(StatusPaused))
}
