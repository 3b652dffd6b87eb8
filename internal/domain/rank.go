package domain

import (
	"regexp"
	"strings"
)

// Ranks is the fixed condition-grade scale, best first. Records store the
// ordinal index, never the code string.
var Ranks = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-"}

var rankPattern = regexp.MustCompile(`\b[A-Da-d][+-]?`)

// RankIndex maps a grade code to its ordinal, case-insensitively.
func RankIndex(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, r := range Ranks {
		if r == code {
			return i, true
		}
	}
	return 0, false
}

// RankCode maps an ordinal back to its grade code, or "" out of range.
func RankCode(index int) string {
	if index < 0 || index >= len(Ranks) {
		return ""
	}
	return Ranks[index]
}

// ExtractRank finds the grade token inside a free-text cell ("scratched A-")
// and returns its ordinal. Operators write the grade anywhere in the note.
func ExtractRank(text string) (int, bool) {
	match := rankPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	return RankIndex(match)
}
