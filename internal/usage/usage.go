// Package usage holds the daily and monthly usage model and the fold from one
// to the other.
package usage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Accepted layouts for provider dates, all read as UTC. Month and day may be
// unpadded, and fractional seconds are accepted after the seconds field.
var recordLayouts = []string{
	"2006-1-2",
	"2006-1-2T15:04:05",
	"2006-1-2 15:04:05",
}

// DailyRecord is one account's usage on one calendar day.
type DailyRecord struct {
	Date    string
	Jobs    int64
	Seconds float64
}

// MonthlySummary sums seconds exactly as reported, fractions included.
type MonthlySummary struct {
	Jobs    int64   `json:"jobs"`
	Seconds float64 `json:"time"`
}

// Monthly maps a YYYY-MM key to that month's totals.
type Monthly map[string]MonthlySummary

// Months returns the month keys in ascending order.
func (m Monthly) Months() []string {
	keys := lo.Keys(map[string]MonthlySummary(m))
	sort.Strings(keys)
	return keys
}

// MalformedDataError reports a usage record that cannot be read.
type MalformedDataError struct {
	Account string
	Date    string
	Reason  string
}

func (e *MalformedDataError) Error() string {
	var b strings.Builder
	b.WriteString("malformed usage data")
	if e.Account != "" {
		fmt.Fprintf(&b, " for %s", e.Account)
	}
	if e.Date != "" {
		fmt.Fprintf(&b, " on %q", e.Date)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// MonthKey truncates a provider date to its month. Dates without a zone are
// read as UTC; a trailing "Z" is accepted.
func MonthKey(date string) (string, error) {
	t, err := parseDate(date)
	if err != nil {
		return "", &MalformedDataError{Date: date, Reason: "unparseable date"}
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Format(monthLayout), nil
}

func parseDate(date string) (time.Time, error) {
	s := strings.TrimSuffix(strings.TrimSpace(date), "Z")
	var lastErr error
	for _, layout := range recordLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Aggregate folds daily records into per-month totals. The result does not
// depend on record order.
func Aggregate(records []DailyRecord) (Monthly, error) {
	byMonth := make(Monthly)
	for _, r := range records {
		key, err := MonthKey(r.Date)
		if err != nil {
			return nil, err
		}
		sum := byMonth[key]
		sum.Jobs += r.Jobs
		sum.Seconds += r.Seconds
		byMonth[key] = sum
	}
	return byMonth, nil
}
