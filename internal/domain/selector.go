package domain

import "fmt"

// Period narrows the feed to a time window.
type Period string

const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Severity narrows the feed to a magnitude class.
type Severity string

const (
	SeveritySignificant Severity = "significant"
	SeverityM45         Severity = "4.5"
	SeverityM25         Severity = "2.5"
	SeverityM10         Severity = "1.0"
	SeverityAll         Severity = "all"
)

// ParsePeriod validates a period selector.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// ParseSeverity validates a severity selector.
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(s); v {
	case SeveritySignificant, SeverityM45, SeverityM25, SeverityM10, SeverityAll:
		return v, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// FeedName returns the summary feed file stem, e.g. "significant_month".
func FeedName(period Period, severity Severity) string {
	return string(severity) + "_" + string(period)
}
