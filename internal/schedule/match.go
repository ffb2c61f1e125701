package schedule

import (
	"strconv"
	"strings"
)

// separators recognized inside a multi-value field, applied in order.
var separators = []string{";", "|", ","}

// normalizeField reduces a raw field value to a comparable string. Whole
// number decimals collapse to their integer form ("7.0" becomes "7"), a
// hangover from spreadsheet imports where hours arrive as floats. Values
// without a decimal point are only trimmed, so "07" keeps its padding.
func normalizeField(value string) string {
	v := strings.TrimSpace(value)
	if v == "" || !strings.Contains(v, ".") {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return v
}

// splitValues breaks a field into its candidate tokens. Empty tokens are
// dropped; an empty input yields nil.
func splitValues(raw string) []string {
	if raw == "" {
		return nil
	}
	tokens := []string{raw}
	for _, sep := range separators {
		next := make([]string, 0, len(tokens))
		for _, t := range tokens {
			next = append(next, strings.Split(t, sep)...)
		}
		tokens = next
	}
	out := tokens[:0]
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// tokenMatches compares one candidate token against the current value.
// Both-numeric tokens compare by value, so "7" matches "07". Anything else
// falls back to a substring test (current contained in token), kept for
// compatibility with entries like "Monday, Tuesday" written as one token.
func tokenMatches(token, current string) bool {
	token = strings.TrimSpace(token)
	current = strings.TrimSpace(current)
	if token == "" || current == "" {
		return false
	}
	if isDigits(token) && isDigits(current) {
		ti, err1 := strconv.Atoi(token)
		ci, err2 := strconv.Atoi(current)
		if err1 == nil && err2 == nil {
			return ti == ci
		}
	}
	return strings.Contains(token, current)
}

// Matches reports whether one schedule field accepts the current value of
// its dimension. An empty field never matches; the wildcard always does.
func Matches(field, current string) bool {
	raw := normalizeField(field)
	if raw == "" {
		return false
	}
	if strings.EqualFold(raw, Wildcard) {
		return true
	}
	tokens := splitValues(raw)
	if tokens == nil {
		// Separators with nothing between them: compare the whole value.
		return tokenMatches(raw, current)
	}
	for _, token := range tokens {
		if tokenMatches(token, current) {
			return true
		}
	}
	return false
}

// ShouldEnqueue reports whether an entry is due at the given snapshot.
// All seven dimensions must match.
func ShouldEnqueue(e Entry, now Snapshot) bool {
	return Matches(e.Year, now.Year) &&
		Matches(e.MonthsOfYear, now.MonthName) &&
		Matches(e.WeeksOfMonth, now.WeekOfMonth) &&
		Matches(e.DaysOfWeek, now.WeekdayName) &&
		Matches(e.Day, now.Day) &&
		Matches(e.Hour, now.Hour) &&
		Matches(e.Minute, now.Minute)
}
