package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/club_league/internal/model"
)

func set(n int, a, b int) model.SetScore {
	return model.SetScore{Number: n, Scores: [2]int{a, b}}
}

func tb(n int, a, b int) model.SetScore {
	return model.SetScore{Number: n, IsTieBreak: true, Scores: [2]int{a, b}}
}

func mustFormat(t *testing.T, code string) Format {
	t.Helper()
	f, err := Lookup(code)
	require.NoError(t, err)
	return f
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		sets       []model.SetScore
		wantWinner int
		wantErr    string
	}{
		{
			name:       "straight sets",
			format:     FormatBestOfThreeSuperTB,
			sets:       []model.SetScore{set(1, 6, 4), set(2, 6, 3)},
			wantWinner: 0,
		},
		{
			name:       "tie-break sets and super tie-break",
			format:     FormatBestOfThreeSuperTB,
			sets:       []model.SetScore{set(1, 7, 6), set(2, 5, 7), tb(3, 8, 10)},
			wantWinner: 1,
		},
		{
			name:       "extended super tie-break",
			format:     FormatBestOfThreeSuperTB,
			sets:       []model.SetScore{set(1, 6, 1), set(2, 1, 6), tb(3, 14, 12)},
			wantWinner: 0,
		},
		{
			name:       "zero set is discarded",
			format:     FormatBestOfThreeSuperTB,
			sets:       []model.SetScore{set(1, 6, 4), set(2, 6, 3), tb(3, 0, 0)},
			wantWinner: 0,
		},
		{
			name:       "full third set",
			format:     FormatBestOfThree,
			sets:       []model.SetScore{set(1, 4, 6), set(2, 6, 2), set(3, 3, 6)},
			wantWinner: 1,
		},
		{
			name:       "single set to ten",
			format:     FormatSingleSetToTen,
			sets:       []model.SetScore{set(1, 11, 10)},
			wantWinner: 0,
		},
		{
			name:       "short sets with seven point super tie-break",
			format:     FormatShortSetsSuperTB,
			sets:       []model.SetScore{set(1, 4, 2), set(2, 3, 5), tb(3, 5, 7)},
			wantWinner: 1,
		},
		{
			name:    "super tie-break too short",
			format:  FormatShortSetsSuperTB,
			sets:    []model.SetScore{set(1, 4, 2), set(2, 3, 5), tb(3, 6, 4)},
			wantErr: "set 3: super tie-break must reach at least 7 points",
		},
		{
			name:    "super tie-break without margin",
			format:  FormatBestOfThreeSuperTB,
			sets:    []model.SetScore{set(1, 6, 4), set(2, 4, 6), tb(3, 11, 10)},
			wantErr: "set 3: super tie-break must be won by two points",
		},
		{
			name:    "numbering gap",
			format:  FormatBestOfThreeSuperTB,
			sets:    []model.SetScore{set(1, 6, 4), set(3, 6, 3)},
			wantErr: "sets must be numbered consecutively starting at 1",
		},
		{
			name:    "set not finished",
			format:  FormatBestOfThree,
			sets:    []model.SetScore{set(1, 6, 4), set(2, 5, 4)},
			wantErr: "set 2: a set must be played to 6 games",
		},
		{
			name:    "impossible set",
			format:  FormatBestOfThree,
			sets:    []model.SetScore{set(1, 6, 5), set(2, 6, 4)},
			wantErr: "set 1: invalid set score 6-5",
		},
		{
			name:    "match not decided",
			format:  FormatBestOfThree,
			sets:    []model.SetScore{set(1, 6, 4), set(2, 4, 6)},
			wantErr: "match is not finished: no side won 2 sets",
		},
		{
			name:    "extra set after decision",
			format:  FormatBestOfThree,
			sets:    []model.SetScore{set(1, 6, 4), set(2, 6, 4), set(3, 6, 4)},
			wantErr: "set 3: played after the match was already decided",
		},
		{
			name:    "tie-break flag in first set",
			format:  FormatBestOfThreeSuperTB,
			sets:    []model.SetScore{tb(1, 10, 8), set(2, 6, 4)},
			wantErr: "set 1: super tie-break is only allowed as the deciding set",
		},
		{
			name:    "deciding set played as a normal set",
			format:  FormatBestOfThreeSuperTB,
			sets:    []model.SetScore{set(1, 6, 4), set(2, 4, 6), set(3, 6, 2)},
			wantErr: "set 3: deciding set must be played as a super tie-break",
		},
		{
			name:    "nothing reported",
			format:  FormatBestOfThree,
			sets:    []model.SetScore{set(1, 0, 0)},
			wantErr: "at least one set must be reported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustFormat(t, tt.format)
			out, err := f.Validate(tt.sets)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWinner, out.WinnerIndex)
		})
	}
}

func TestValidateCountsGames(t *testing.T) {
	f := mustFormat(t, FormatBestOfThreeSuperTB)
	out, err := f.Validate([]model.SetScore{set(1, 6, 4), set(2, 3, 6), tb(3, 10, 5)})
	require.NoError(t, err)

	assert.Equal(t, [2]int{2, 1}, out.SetsWon)
	assert.Equal(t, [2]int{9, 10}, out.GamesWon)
	assert.Len(t, out.Sets, 3)
}

func TestWalkover(t *testing.T) {
	f := mustFormat(t, FormatBestOfThreeSuperTB)
	sets := f.Walkover(1)

	require.Len(t, sets, 2)
	assert.Equal(t, [2]int{0, 6}, sets[0].Scores)
	assert.Equal(t, [2]int{0, 6}, sets[1].Scores)

	out, err := f.Validate(sets)
	require.NoError(t, err)
	assert.Equal(t, 1, out.WinnerIndex)
}

func TestParseScore(t *testing.T) {
	f := mustFormat(t, FormatBestOfThreeSuperTB)

	sets, err := f.ParseScore("6-4, 3-6 10-7")
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, set(1, 6, 4), sets[0])
	assert.Equal(t, tb(3, 10, 7), sets[2])
	assert.Equal(t, "6-4 3-6 [10-7]", FormatScore(sets))

	_, err = f.ParseScore("6:4")
	assert.EqualError(t, err, `set 1: cannot parse "6:4", expected games like 6-4`)

	_, err = f.ParseScore("  ")
	assert.EqualError(t, err, "score is empty")
}

func TestLookup(t *testing.T) {
	f, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFormat, f.Code)

	_, err = Lookup("best_of_5")
	assert.EqualError(t, err, `unknown match format "best_of_5"`)
}
