package schedule

import "time"

// Names maps calendar units to the display names schedule entries are
// written against. Entries store month and weekday names as text, so the
// matcher needs the same vocabulary the operator used.
type Names interface {
	Month(m time.Month) string
	Weekday(d time.Weekday) string
}

// EnglishNames uses Go's built-in English names ("January", "Monday").
type EnglishNames struct{}

func (EnglishNames) Month(m time.Month) string     { return m.String() }
func (EnglishNames) Weekday(d time.Weekday) string { return d.String() }

// TableNames is a Names backed by explicit tables, for deployments whose
// entries use a different language. Months[0] is January, Weekdays[0] is
// Sunday (time.Weekday order). Empty slots fall back to English.
type TableNames struct {
	Months   [12]string
	Weekdays [7]string
}

func (t TableNames) Month(m time.Month) string {
	if m >= time.January && m <= time.December {
		if s := t.Months[m-1]; s != "" {
			return s
		}
	}
	return m.String()
}

func (t TableNames) Weekday(d time.Weekday) string {
	if d >= time.Sunday && d <= time.Saturday {
		if s := t.Weekdays[d]; s != "" {
			return s
		}
	}
	return d.String()
}
