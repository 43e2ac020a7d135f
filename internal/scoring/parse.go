package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/club_league/internal/model"
)

// ParseScore разбирает строку вида "6-4 3-6 [10-7]".
// Очки идут в порядке Match.Players. Решающий сет в формате с супер тай-брейком
// помечается автоматически, скобки тоже означают тай-брейк.
func (f Format) ParseScore(score string) ([]model.SetScore, error) {
	tokens := strings.FieldsFunc(score, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';'
	})
	if len(tokens) == 0 {
		return nil, matchErr("score is empty")
	}

	sets := make([]model.SetScore, 0, len(tokens))
	for i, tok := range tokens {
		number := i + 1
		tieBreak := false
		if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
			tok = strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")
			tieBreak = true
		}
		parts := strings.Split(tok, "-")
		if len(parts) != 2 {
			return nil, setErr(number, "cannot parse %q, expected games like 6-4", tok)
		}
		a, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, setErr(number, "cannot parse %q: %v", tok, err)
		}
		b, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, setErr(number, "cannot parse %q: %v", tok, err)
		}
		if f.FinalSetSuperTieBreak && number == f.MaxSets() {
			tieBreak = true
		}
		sets = append(sets, model.SetScore{Number: number, IsTieBreak: tieBreak, Scores: [2]int{a, b}})
	}
	return sets, nil
}

// FormatScore обратная к ParseScore запись счёта
func FormatScore(sets []model.SetScore) string {
	parts := make([]string, 0, len(sets))
	for _, s := range sets {
		p := fmt.Sprintf("%d-%d", s.Scores[0], s.Scores[1])
		if s.IsTieBreak {
			p = "[" + p + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
