package statement

import "strings"

// Find locates a line item under any of the candidate labels and
// returns its value for the requested period.
//
// Matching is a case-insensitive substring check, tried in the
// caller-supplied candidate order: the same economic concept appears
// under different labels across filers, so callers list aliases from
// most to least specific. When preferTotal is set, a first pass
// considers only rows flagged IsTotal so that an aggregate row wins
// over a same-named sub-component; a second pass then considers every
// row with a value for the period.
//
// Rows with no value for the requested period (header rows included)
// never match. Returns nil when no candidate matches.
func Find(lines []Line, period Period, candidates []string, preferTotal bool) *float64 {
	if preferTotal {
		if v := scan(lines, period, candidates, true); v != nil {
			return v
		}
	}
	return scan(lines, period, candidates, false)
}

// FindNonZero is Find with zero treated as absent. Ratio denominators
// use it so that a reported zero balance never manufactures a
// divide-by-zero; plain Find is the right call everywhere else.
func FindNonZero(lines []Line, period Period, candidates []string, preferTotal bool) *float64 {
	v := Find(lines, period, candidates, preferTotal)
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func scan(lines []Line, period Period, candidates []string, totalOnly bool) *float64 {
	for _, cand := range candidates {
		needle := strings.ToLower(cand)
		for i := range lines {
			line := &lines[i]
			if totalOnly && !line.IsTotal {
				continue
			}
			v := line.Value(period)
			if v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(line.Label), needle) {
				return v
			}
		}
	}
	return nil
}
