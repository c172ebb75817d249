package usage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Report is the usage of every resolved account, keyed by account name, in
// resolution order.
type Report struct {
	accounts []string
	usage    map[string]Monthly

	Failures []AccountFailure
}

// AccountFailure records an account left out of a keep-going report.
type AccountFailure struct {
	Account string
	Err     error
}

func NewReport() *Report {
	return &Report{usage: make(map[string]Monthly)}
}

// Add stores an account's months. Adding the same account twice is an error.
func (r *Report) Add(account string, months Monthly) error {
	if _, ok := r.usage[account]; ok {
		return fmt.Errorf("account %s already in report", account)
	}
	r.accounts = append(r.accounts, account)
	r.usage[account] = months
	return nil
}

func (r *Report) Accounts() []string {
	out := make([]string, len(r.accounts))
	copy(out, r.accounts)
	return out
}

func (r *Report) Months(account string) (Monthly, bool) {
	m, ok := r.usage[account]
	return m, ok
}

func (r *Report) Len() int {
	return len(r.accounts)
}

// Totals sums every account and month in the report.
func (r *Report) Totals() MonthlySummary {
	var total MonthlySummary
	for _, months := range r.usage {
		for _, s := range months {
			total.Jobs += s.Jobs
			total.Seconds += s.Seconds
		}
	}
	return total
}

func (r *Report) FailureSummary() string {
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Account, f.Err))
	}
	return strings.Join(parts, "; ")
}

// MarshalJSON writes the report as an object keyed by account, keeping
// resolution order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, account := range r.accounts {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(account)
		if err != nil {
			return nil, err
		}
		months := r.usage[account]
		if months == nil {
			months = Monthly{}
		}
		val, err := json.Marshal(months)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
