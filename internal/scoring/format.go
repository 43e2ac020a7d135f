package scoring

import (
	"fmt"
	"sort"

	"github.com/Freeeeeet/club_league/internal/model"
)

// Коды форматов матча, хранятся в categories.format
const (
	FormatBestOfThree          = "best_of_3"
	FormatBestOfThreeSuperTB   = "best_of_3_super_tb"
	FormatShortSetsSuperTB     = "short_sets_super_tb"
	FormatSingleSetToTen       = "single_set_10"
	DefaultFormat              = FormatBestOfThreeSuperTB
	defaultSuperTieBreakPoints = 10
	shortSuperTieBreakPoints   = 7
)

// Format правила победы в матче
type Format struct {
	Code                  string
	SetsToWin             int
	GamesPerSet           int
	FinalSetSuperTieBreak bool
	SuperTieBreakPoints   int
}

var formats = map[string]Format{
	FormatBestOfThree: {
		Code:        FormatBestOfThree,
		SetsToWin:   2,
		GamesPerSet: 6,
	},
	FormatBestOfThreeSuperTB: {
		Code:                  FormatBestOfThreeSuperTB,
		SetsToWin:             2,
		GamesPerSet:           6,
		FinalSetSuperTieBreak: true,
		SuperTieBreakPoints:   defaultSuperTieBreakPoints,
	},
	FormatShortSetsSuperTB: {
		Code:                  FormatShortSetsSuperTB,
		SetsToWin:             2,
		GamesPerSet:           4,
		FinalSetSuperTieBreak: true,
		SuperTieBreakPoints:   shortSuperTieBreakPoints,
	},
	FormatSingleSetToTen: {
		Code:        FormatSingleSetToTen,
		SetsToWin:   1,
		GamesPerSet: 10,
	},
}

// Lookup возвращает формат по коду; пустой код - формат по умолчанию
func Lookup(code string) (Format, error) {
	if code == "" {
		code = DefaultFormat
	}
	f, ok := formats[code]
	if !ok {
		return Format{}, fmt.Errorf("unknown match format %q", code)
	}
	return f, nil
}

// MaxSets максимальное число сетов в матче
func (f Format) MaxSets() int {
	return 2*f.SetsToWin - 1
}

// Outcome итог проверенного счёта
type Outcome struct {
	Sets        []model.SetScore
	WinnerIndex int
	SetsWon     [2]int
	GamesWon    [2]int
}

// SetError ошибка проверки счёта; Number = 0 для ошибок всего матча
type SetError struct {
	Number int
	Reason string
}

func (e *SetError) Error() string {
	if e.Number == 0 {
		return e.Reason
	}
	return fmt.Sprintf("set %d: %s", e.Number, e.Reason)
}

func matchErr(format string, args ...any) error {
	return &SetError{Reason: fmt.Sprintf(format, args...)}
}

func setErr(number int, format string, args ...any) error {
	return &SetError{Number: number, Reason: fmt.Sprintf(format, args...)}
}

// Validate проверяет сеты по правилам формата и вычисляет победителя.
// Сеты 0-0 отбрасываются, счёт никогда не исправляется.
func (f Format) Validate(sets []model.SetScore) (Outcome, error) {
	played := make([]model.SetScore, 0, len(sets))
	for _, s := range sets {
		if s.Scores[0] == 0 && s.Scores[1] == 0 {
			continue
		}
		played = append(played, s)
	}
	if len(played) == 0 {
		return Outcome{}, matchErr("at least one set must be reported")
	}

	sort.SliceStable(played, func(i, j int) bool { return played[i].Number < played[j].Number })
	for i, s := range played {
		if s.Number != i+1 {
			return Outcome{}, matchErr("sets must be numbered consecutively starting at 1")
		}
	}
	if len(played) > f.MaxSets() {
		return Outcome{}, matchErr("a match in format %s has at most %d sets", f.Code, f.MaxSets())
	}

	var out Outcome
	for _, s := range played {
		if out.SetsWon[0] == f.SetsToWin || out.SetsWon[1] == f.SetsToWin {
			return Outcome{}, setErr(s.Number, "played after the match was already decided")
		}
		if s.Scores[0] < 0 || s.Scores[1] < 0 {
			return Outcome{}, setErr(s.Number, "scores cannot be negative")
		}

		deciding := f.FinalSetSuperTieBreak && s.Number == f.MaxSets()
		switch {
		case s.IsTieBreak && !deciding:
			return Outcome{}, setErr(s.Number, "super tie-break is only allowed as the deciding set")
		case deciding && !s.IsTieBreak:
			return Outcome{}, setErr(s.Number, "deciding set must be played as a super tie-break")
		}

		var err error
		if s.IsTieBreak {
			err = f.validateSuperTieBreak(s)
		} else {
			err = f.validateSet(s)
		}
		if err != nil {
			return Outcome{}, err
		}

		w := 0
		if s.Scores[1] > s.Scores[0] {
			w = 1
		}
		out.SetsWon[w]++
		if !s.IsTieBreak {
			out.GamesWon[0] += s.Scores[0]
			out.GamesWon[1] += s.Scores[1]
		}
	}

	switch {
	case out.SetsWon[0] == f.SetsToWin:
		out.WinnerIndex = 0
	case out.SetsWon[1] == f.SetsToWin:
		out.WinnerIndex = 1
	default:
		return Outcome{}, matchErr("match is not finished: no side won %d sets", f.SetsToWin)
	}
	out.Sets = played
	return out, nil
}

// validateSet: G-x при x <= G-2, либо G+1-(G-1), либо G+1-G (тай-брейк)
func (f Format) validateSet(s model.SetScore) error {
	hi, lo := s.Scores[0], s.Scores[1]
	if lo > hi {
		hi, lo = lo, hi
	}
	g := f.GamesPerSet
	switch {
	case hi == lo:
		return setErr(s.Number, "a set cannot end level at %d-%d", hi, lo)
	case hi < g:
		return setErr(s.Number, "a set must be played to %d games", g)
	case hi == g && lo <= g-2:
		return nil
	case hi == g+1 && (lo == g-1 || lo == g):
		return nil
	default:
		return setErr(s.Number, "invalid set score %d-%d", s.Scores[0], s.Scores[1])
	}
}

func (f Format) validateSuperTieBreak(s model.SetScore) error {
	hi, lo := s.Scores[0], s.Scores[1]
	if lo > hi {
		hi, lo = lo, hi
	}
	p := f.SuperTieBreakPoints
	switch {
	case hi < p:
		return setErr(s.Number, "super tie-break must reach at least %d points", p)
	case hi-lo < 2:
		return setErr(s.Number, "super tie-break must be won by two points")
	case hi > p && hi-lo != 2:
		return setErr(s.Number, "super tie-break beyond %d points must end with a two-point margin", p)
	}
	return nil
}

// Walkover счёт технической победы: SetsToWin сетов GamesPerSet-0
func (f Format) Walkover(winnerIndex int) []model.SetScore {
	sets := make([]model.SetScore, 0, f.SetsToWin)
	for i := 1; i <= f.SetsToWin; i++ {
		s := model.SetScore{Number: i}
		s.Scores[winnerIndex] = f.GamesPerSet
		sets = append(sets, s)
	}
	return sets
}
